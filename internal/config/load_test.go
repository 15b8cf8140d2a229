package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sandbox", cfg.Enable.Env)
	assert.Equal(t, 8080, cfg.MCP.Port)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ENABLE_APP_ID", "app-123")
	t.Setenv("ENABLE_ENV", "production")
	t.Setenv("MCP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "app-123", cfg.Enable.AppID)
	assert.True(t, cfg.Enable.IsProduction())
	assert.Equal(t, 9090, cfg.MCP.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ConfigFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	require.NoError(t, err)
	_, err = f.WriteString("mcp:\n  host: 127.0.0.1\n  port: 9999\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	cfg, err := Load(f.Name())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.MCP.Host)
	assert.Equal(t, 9999, cfg.MCP.Port)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	require.NoError(t, err)
	_, err = f.WriteString("mcp:\n  port: 9999\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	t.Setenv("MCP_PORT", "7070")

	cfg, err := Load(f.Name())
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.MCP.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}
