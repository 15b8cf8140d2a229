package upstream

// New builds the upstream Client appropriate for the given configuration:
// a liveClient when signing material is present, otherwise a sandboxClient
// unless production mode demands real credentials (ConfigError).
func New(appID, privateKeyPath string, production bool, externalBaseURL string) (Client, error) {
	if appID != "" && privateKeyPath != "" {
		return NewLiveClient(appID, privateKeyPath)
	}

	if production {
		return nil, &ConfigError{Reason: "ENABLE_APP_ID/ENABLE_PRIVATE_KEY_PATH are required in production"}
	}

	return NewSandboxClient(externalBaseURL), nil
}
