package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakubkrzysztofsikora/adhd-budget/internal/app"
)

// serveConfigPath points at an optional YAML file overriding defaults,
// itself overridden by environment variables.
var serveConfigPath string

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveCmd starts the gateway's HTTP listener and blocks until terminated.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP gateway's HTTP listener",
	Long: `Starts the gateway: the OAuth 2.1 authorization server, the MCP
JSON-RPC/SSE transport, and the tool catalogue, all behind one HTTP mux.

Configuration is read from an optional YAML file, then the environment
(MCP_HOST, MCP_PORT, ENABLE_APP_ID, ENABLE_PRIVATE_KEY_PATH, ENABLE_ENV,
OAUTH_ISSUER, and related variables), in that precedence order.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := app.NewConfig(serveConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if serveDebug {
		cfg.LogLevel = "debug"
		cfg.Debug = true
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Path to an optional YAML config file")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
}
