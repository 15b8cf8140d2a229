// Package app bootstraps the gateway: it loads configuration, wires the
// store/session/upstream/oauthserver/mcpserver/tools layers together, and
// runs the HTTP listener under a single errgroup.
package app

import "github.com/jakubkrzysztofsikora/adhd-budget/internal/config"

// ServerName and ServerVersion identify this gateway in the MCP initialize
// handshake and the discovery manifest.
const (
	ServerName    = "adhd-budget-gateway"
	ServerVersion = "0.1.0"
)

// NewConfig loads the gateway's configuration: defaults, an optional YAML
// file at configPath, then environment variables, in that precedence order.
func NewConfig(configPath string) (config.Config, error) {
	return config.Load(configPath)
}
