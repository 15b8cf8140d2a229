package httpapi

import (
	"encoding/json"
	"net/http"
)

// ManifestConfig carries the protocol and capability facts the manifest
// reports; the mux wiring supplies these from mcpserver/oauthserver config.
type ManifestConfig struct {
	ProtocolVersions []string
	ServerName       string
	ServerVersion    string
}

// HandleHealth implements GET /health.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// HandleManifest implements GET /.well-known/mcp.json: it reports the
// transport endpoint, supported protocol versions, capabilities, and where
// to find authorization metadata, all derived from the external base URL so
// it is correct behind any fronting proxy.
func HandleManifest(cfg ManifestConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		base := ExternalBaseURL(r)

		manifest := map[string]interface{}{
			"name":             cfg.ServerName,
			"version":          cfg.ServerVersion,
			"protocolVersions": cfg.ProtocolVersions,
			"transport": map[string]interface{}{
				"type": "streamable-http",
				"url":  base + "/mcp",
			},
			"capabilities": map[string]interface{}{
				"tools":     map[string]interface{}{"listChanged": false},
				"resources": map[string]interface{}{"subscribe": false, "listChanged": false},
				"prompts":   map[string]interface{}{"listChanged": false},
			},
			"authorization": map[string]interface{}{
				"authorization_server_metadata": base + "/.well-known/oauth-authorization-server",
				"protected_resource_metadata":   base + "/.well-known/oauth-protected-resource",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(manifest)
	}
}
