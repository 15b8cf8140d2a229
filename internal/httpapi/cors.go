package httpapi

import (
	"net/http"
	"strings"
)

// allowedOrigins lists the origin prefixes permitted to call this gateway
// from a browser: the supported MCP clients plus local dev ports.
var allowedOrigins = []string{
	"https://claude.ai",
	"https://www.claude.ai",
	"https://app.claude.ai",
	"https://lite.claude.ai",
	"https://chat.openai.com",
	"https://www.chat.openai.com",
	"https://chatgpt.com",
	"https://www.chatgpt.com",
	"https://platform.openai.com",
	"http://localhost:3000",
	"http://127.0.0.1:3000",
}

func originAllowed(origin string) bool {
	for _, prefix := range allowedOrigins {
		if strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	return false
}

// CORS wraps next with the gateway's origin allow-list. OPTIONS preflights
// always get a 200 with the allow headers; other methods are rejected with
// 403 if Origin is set and not allow-listed.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" {
			if !originAllowed(origin) {
				if r.Method != http.MethodOptions {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusForbidden)
					w.Write([]byte(`{"error":"Invalid origin"}`))
					return
				}
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id, MCP-Protocol-Version")
		w.Header().Set("Access-Control-Expose-Headers", "Mcp-Session-Id")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
