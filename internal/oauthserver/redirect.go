package oauthserver

import "strings"

// remoteRedirectPrefixes are the known-good redirect_uri prefixes for the
// assistant platforms this gateway is meant to serve without requiring them
// to call /oauth/register first.
var remoteRedirectPrefixes = []string{
	"https://claude.ai/",
	"https://www.claude.ai/",
	"https://app.claude.ai/",
	"https://lite.claude.ai/",
	"https://chat.openai.com/",
	"https://www.chat.openai.com/",
	"https://chatgpt.com/",
	"https://www.chatgpt.com/",
}

// wellKnownCallbackURIs are appended to every registered client's redirect
// set so a single static client id can serve every supported platform.
var wellKnownCallbackURIs = []string{
	"https://claude.ai/api/mcp/auth_callback",
	"https://chat.openai.com/aip/api/auth/callback",
	"https://chatgpt.com/aip/api/auth/callback",
}

func isRemoteRedirect(uri string) bool {
	for _, prefix := range remoteRedirectPrefixes {
		if strings.HasPrefix(uri, prefix) {
			return true
		}
	}
	return false
}

func isLocalhostRedirect(uri string) bool {
	return strings.HasPrefix(uri, "http://localhost") || strings.HasPrefix(uri, "http://127.0.0.1")
}

// redirectAllowed reports whether uri may be registered or used as an
// /authorize redirect_uri. Outside production mode, localhost loopback URIs
// are additionally accepted for local development.
func redirectAllowed(uri string, production bool) bool {
	if isRemoteRedirect(uri) {
		return true
	}
	if !production && isLocalhostRedirect(uri) {
		return true
	}
	return false
}

// withWellKnownCallbacks returns uris extended with the well-known platform
// callbacks, preserving insertion order and uniqueness.
func withWellKnownCallbacks(uris []string) []string {
	seen := make(map[string]bool, len(uris)+len(wellKnownCallbackURIs))
	out := make([]string, 0, len(uris)+len(wellKnownCallbackURIs))
	for _, u := range append(append([]string{}, uris...), wellKnownCallbackURIs...) {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
