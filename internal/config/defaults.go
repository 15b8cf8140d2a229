package config

// GetDefaultConfig returns the built-in configuration defaults, before
// environment variables or a --config-path file are applied.
func GetDefaultConfig() Config {
	return Config{
		Enable: EnableBankingConfig{
			Env:          "sandbox",
			ASPSPID:      "",
			ASPSPCountry: "GB",
		},
		MCP: MCPConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		LogLevel: "info",
	}
}
