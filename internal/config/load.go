package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load builds the process configuration: defaults, overridden by an optional
// YAML file at configPath, overridden in turn by environment variables.
func Load(configPath string) (Config, error) {
	cfg := GetDefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", configPath, err)
		}
	}

	applyEnv(&cfg)

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ENABLE_APP_ID"); v != "" {
		cfg.Enable.AppID = v
	}
	if v := os.Getenv("ENABLE_PRIVATE_KEY_PATH"); v != "" {
		cfg.Enable.PrivateKeyPath = v
	}
	if v := os.Getenv("ENABLE_ENV"); v != "" {
		cfg.Enable.Env = v
	}
	if v := os.Getenv("ENABLE_BANKING_ASPSP_ID"); v != "" {
		cfg.Enable.ASPSPID = v
	}
	if v := os.Getenv("ENABLE_ASPSP_COUNTRY"); v != "" {
		cfg.Enable.ASPSPCountry = v
	}
	if v := os.Getenv("ENABLE_OAUTH_REDIRECT_URL"); v != "" {
		cfg.Enable.RedirectURL = v
	}
	if v := os.Getenv("OAUTH_ISSUER"); v != "" {
		cfg.OAuth.Issuer = v
	}
	if v := os.Getenv("MCP_HOST"); v != "" {
		cfg.MCP.Host = v
	}
	if v := os.Getenv("MCP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MCP.Port = port
		}
	}
	if v := os.Getenv("PRODUCTION_HOSTNAME"); v != "" {
		cfg.MCP.ProductionHostname = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DEBUG"); v == "1" || v == "true" {
		cfg.LogLevel = "debug"
	}
}
