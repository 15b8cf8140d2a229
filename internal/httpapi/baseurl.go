// Package httpapi provides the gateway's outermost HTTP concerns: external
// base URL derivation, CORS, and the health/manifest endpoints. It is the
// single source of truth other components call into when they need to
// advertise an absolute URL.
package httpapi

import (
	"net/http"
	"strings"
)

// ProductionHostname, when non-empty, forces https and this host for every
// derived base URL regardless of what the request's forwarding headers say.
var ProductionHostname string

// ExternalBaseURL derives the externally-visible scheme+host for r, honouring
// a fronting reverse proxy's X-Forwarded-Proto/X-Forwarded-Host headers and a
// Cloudflare CF-Visitor hint. ProductionHostname, if set,
// overrides the result to force https on that exact host.
func ExternalBaseURL(r *http.Request) string {
	if ProductionHostname != "" {
		return "https://" + ProductionHostname
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.Split(proto, ",")[0]
	}
	if visitor := r.Header.Get("CF-Visitor"); strings.Contains(visitor, `"scheme":"https"`) {
		scheme = "https"
	}

	host := r.Host
	if fh := r.Header.Get("X-Forwarded-Host"); fh != "" {
		host = strings.Split(fh, ",")[0]
	}

	return scheme + "://" + strings.TrimSpace(host)
}
