package main

import "github.com/jakubkrzysztofsikora/adhd-budget/cmd"

// version can be set at build time with -ldflags.
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
