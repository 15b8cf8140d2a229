package mcpserver

import (
	"strings"

	"github.com/jakubkrzysztofsikora/adhd-budget/internal/session"
	"github.com/jakubkrzysztofsikora/adhd-budget/internal/store"
	"github.com/jakubkrzysztofsikora/adhd-budget/internal/tools"
	"github.com/jakubkrzysztofsikora/adhd-budget/internal/upstream"
)

// ServerInfo identifies this gateway in the initialize handshake.
type ServerInfo struct {
	Name    string
	Version string
}

// Config carries the dispatcher's operating mode.
type Config struct {
	Issuer     string
	ServerInfo ServerInfo
	// Production disables the development-mode sandbox bearer escape hatch.
	Production bool
}

// Server is the gateway's JSON-RPC/SSE transport: it validates bearers
// through the token store, negotiates protocol version and session state,
// and dispatches tools/call into the tool registry.
type Server struct {
	sessions *session.Manager
	store    *store.Store
	upstream upstream.Client
	registry *tools.Registry
	config   Config
}

// NewServer wires the dispatcher's dependencies.
func NewServer(sessions *session.Manager, st *store.Store, up upstream.Client, registry *tools.Registry, cfg Config) *Server {
	return &Server{sessions: sessions, store: st, upstream: up, registry: registry, config: cfg}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header, or "" if absent or malformed.
func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

const sandboxBearerPrefix = "eb_session_"

// authenticatedClient resolves a bearer token to its access token record. In
// non-production mode, an opaque token prefixed eb_session_ is accepted as a
// synthetic sandbox client without a store lookup, for local development.
func (s *Server) authenticatedClient(bearer string) (*store.AccessToken, bool) {
	if bearer == "" {
		return nil, false
	}

	if at, err := s.store.GetAccessToken(bearer); err == nil {
		return at, true
	}

	if !s.config.Production && strings.HasPrefix(bearer, sandboxBearerPrefix) {
		return &store.AccessToken{
			Token:    bearer,
			ClientID: "enable-sandbox",
			Scope:    "accounts transactions",
		}, true
	}

	return nil, false
}
