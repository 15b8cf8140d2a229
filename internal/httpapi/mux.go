package httpapi

import "net/http"

// OAuthHandlers is the subset of internal/oauthserver's Server surface the
// mux needs to mount; kept as an interface so this package never imports
// oauthserver directly.
type OAuthHandlers interface {
	HandleRegister(w http.ResponseWriter, r *http.Request)
	HandleAuthorize(w http.ResponseWriter, r *http.Request)
	HandleEnableBankingCallback(w http.ResponseWriter, r *http.Request)
	HandleToken(w http.ResponseWriter, r *http.Request)
	HandleRevoke(w http.ResponseWriter, r *http.Request)
	HandleAuthorizationServerMetadata(w http.ResponseWriter, r *http.Request)
	HandleProtectedResourceMetadata(w http.ResponseWriter, r *http.Request)
}

// MCPHandlers is the subset of internal/mcpserver's Server surface the mux
// needs to mount.
type MCPHandlers interface {
	HandleRPC(w http.ResponseWriter, r *http.Request)
	HandleStream(w http.ResponseWriter, r *http.Request)
}

// BoundRoutes lists every path NewMux registers, in registration order, for
// display in the debug startup banner. Kept in sync with NewMux by hand: it
// mirrors the HandleFunc calls below rather than introspecting the mux,
// since http.ServeMux exposes no route listing of its own.
var BoundRoutes = []string{
	"/health",
	"/.well-known/mcp.json",
	"/.well-known/oauth-authorization-server",
	"/.well-known/oauth-protected-resource",
	"/oauth/register",
	"/oauth/authorize",
	"/oauth/enable-banking/callback",
	"/oauth/token",
	"/oauth/revoke",
	"/mcp",
	"/mcp/stream",
	"/mcp/sse",
}

// NewMux builds the gateway's single http.Handler: OAuth endpoints, the MCP
// JSON-RPC and SSE endpoints, health, and the discovery manifest, all behind
// the CORS middleware.
func NewMux(oauth OAuthHandlers, mcp MCPHandlers, manifest ManifestConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", HandleHealth)
	mux.HandleFunc("/.well-known/mcp.json", HandleManifest(manifest))
	mux.HandleFunc("/.well-known/oauth-authorization-server", oauth.HandleAuthorizationServerMetadata)
	mux.HandleFunc("/.well-known/oauth-protected-resource", oauth.HandleProtectedResourceMetadata)

	mux.HandleFunc("/oauth/register", oauth.HandleRegister)
	mux.HandleFunc("/oauth/authorize", oauth.HandleAuthorize)
	mux.HandleFunc("/oauth/enable-banking/callback", oauth.HandleEnableBankingCallback)
	mux.HandleFunc("/oauth/token", oauth.HandleToken)
	mux.HandleFunc("/oauth/revoke", oauth.HandleRevoke)

	mux.HandleFunc("/mcp", mcpDispatch(mcp))
	mux.HandleFunc("/mcp/stream", mcp.HandleStream)
	mux.HandleFunc("/mcp/sse", mcp.HandleStream)

	return CORS(mux)
}

// mcpDispatch routes GET /mcp to the SSE stream and POST /mcp to the
// JSON-RPC dispatcher, since both share the single /mcp endpoint.
func mcpDispatch(mcp MCPHandlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			mcp.HandleStream(w, r)
			return
		}
		mcp.HandleRPC(w, r)
	}
}
