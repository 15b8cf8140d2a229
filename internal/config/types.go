// Package config resolves process configuration from environment variables,
// with an optional YAML file overriding the non-secret defaults.
package config

// Config is the top-level configuration for the gateway process.
type Config struct {
	Enable   EnableBankingConfig `yaml:"enableBanking"`
	OAuth    OAuthConfig         `yaml:"oauth"`
	MCP      MCPConfig           `yaml:"mcp"`
	LogLevel string              `yaml:"logLevel,omitempty"`
	// Debug, when set, prints the startup banner (bound routes and the
	// active tool catalogue) alongside verbose logging.
	Debug bool `yaml:"-"`
}

// EnableBankingConfig holds the upstream Enable Banking API configuration.
type EnableBankingConfig struct {
	// AppID identifies the registered Enable Banking application.
	AppID string `yaml:"appId,omitempty"`
	// PrivateKeyPath points at the RSA private key used to sign upstream JWTs.
	PrivateKeyPath string `yaml:"privateKeyPath,omitempty"`
	// Env is "production" or "sandbox". Anything other than "production"
	// enables the mock upstream client when no signing key is configured.
	Env string `yaml:"env,omitempty"`
	// ASPSPID and ASPSPCountry select the default bank for consent initiation.
	ASPSPID      string `yaml:"aspspId,omitempty"`
	ASPSPCountry string `yaml:"aspspCountry,omitempty"`
	// RedirectURL is the upstream OAuth redirect URL registered with Enable Banking.
	RedirectURL string `yaml:"redirectUrl,omitempty"`
}

// IsProduction reports whether strict production behaviour (real upstream
// signing, strict redirect-URI policy) should be enforced.
func (e EnableBankingConfig) IsProduction() bool {
	return e.Env == "production"
}

// OAuthConfig holds the local authorization server configuration.
type OAuthConfig struct {
	// Issuer overrides the derived issuer URL when set.
	Issuer string `yaml:"issuer,omitempty"`
}

// MCPConfig holds the HTTP bind address for the MCP/HTTP front.
type MCPConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
	// ProductionHostname, when set, forces https and this exact host on
	// every externally-advertised URL regardless of forwarded headers.
	ProductionHostname string `yaml:"productionHostname,omitempty"`
}
