package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// rootCmd represents the base command for the gateway binary. It is the
// entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "adhd-budget-gateway",
	Short: "MCP gateway bridging budgeting tools to an Enable Banking connection",
	Long: `adhd-budget-gateway serves the Model Context Protocol over HTTP,
exposing read-only spend summary and projection tools backed by a
self-issuing OAuth 2.1 authorization server that bridges consent to an
upstream Enable Banking connection.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from main to
// inject the build-time version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the CLI entry point, called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "adhd-budget-gateway version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
