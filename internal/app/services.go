package app

import (
	"fmt"
	"net/http"

	"github.com/jakubkrzysztofsikora/adhd-budget/internal/config"
	"github.com/jakubkrzysztofsikora/adhd-budget/internal/httpapi"
	"github.com/jakubkrzysztofsikora/adhd-budget/internal/mcpserver"
	"github.com/jakubkrzysztofsikora/adhd-budget/internal/oauthserver"
	"github.com/jakubkrzysztofsikora/adhd-budget/internal/ratelimit"
	"github.com/jakubkrzysztofsikora/adhd-budget/internal/session"
	"github.com/jakubkrzysztofsikora/adhd-budget/internal/store"
	"github.com/jakubkrzysztofsikora/adhd-budget/internal/tools"
	"github.com/jakubkrzysztofsikora/adhd-budget/internal/upstream"
)

// Services holds every initialized component the gateway's HTTP listener
// depends on.
type Services struct {
	Store    *store.Store
	Sessions *session.Manager
	Upstream upstream.Client

	OAuth    *oauthserver.Server
	MCP      *mcpserver.Server
	Registry *tools.Registry

	Handler http.Handler
}

// InitializeServices wires the gateway's components in dependency order:
// store and session table first, then the upstream client they both depend
// on, then the two transport servers, and finally the HTTP mux.
func InitializeServices(cfg config.Config) (*Services, error) {
	if cfg.MCP.ProductionHostname != "" {
		httpapi.ProductionHostname = cfg.MCP.ProductionHostname
	}

	st := store.New()
	sessions := session.NewManager(session.DefaultTTL)
	limiter := ratelimit.New()

	externalBase := fmt.Sprintf("http://%s:%d", cfg.MCP.Host, cfg.MCP.Port)
	if cfg.MCP.ProductionHostname != "" {
		externalBase = "https://" + cfg.MCP.ProductionHostname
	}

	upstreamClient, err := upstream.New(cfg.Enable.AppID, cfg.Enable.PrivateKeyPath, cfg.Enable.IsProduction(), externalBase)
	if err != nil {
		return nil, fmt.Errorf("failed to construct upstream client: %w", err)
	}

	oauthSrv := oauthserver.NewServer(st, upstreamClient, limiter, oauthserver.Config{
		Production:   cfg.Enable.IsProduction(),
		Issuer:       cfg.OAuth.Issuer,
		ASPSPName:    cfg.Enable.ASPSPID,
		ASPSPCountry: cfg.Enable.ASPSPCountry,
	})

	registry := tools.NewRegistry()

	mcpSrv := mcpserver.NewServer(sessions, st, upstreamClient, registry, mcpserver.Config{
		Issuer:     cfg.OAuth.Issuer,
		Production: cfg.Enable.IsProduction(),
		ServerInfo: mcpserver.ServerInfo{Name: ServerName, Version: ServerVersion},
	})

	handler := httpapi.NewMux(oauthSrv, mcpSrv, httpapi.ManifestConfig{
		ProtocolVersions: mcpserver.SupportedProtocolVersions,
		ServerName:       ServerName,
		ServerVersion:    ServerVersion,
	})

	return &Services{
		Store:    st,
		Sessions: sessions,
		Upstream: upstreamClient,
		OAuth:    oauthSrv,
		MCP:      mcpSrv,
		Registry: registry,
		Handler:  handler,
	}, nil
}
