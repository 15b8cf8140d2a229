package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/sync/errgroup"

	"github.com/jakubkrzysztofsikora/adhd-budget/internal/config"
	"github.com/jakubkrzysztofsikora/adhd-budget/internal/httpapi"
	"github.com/jakubkrzysztofsikora/adhd-budget/pkg/logging"
)

// Application is the gateway process: configuration plus every wired
// service, ready to serve.
type Application struct {
	config   config.Config
	services *Services
	server   *http.Server
}

// NewApplication performs the gateway's bootstrap sequence: configure
// logging, then wire every service in dependency order.
func NewApplication(cfg config.Config) (*Application, error) {
	level := logging.ParseLevel(cfg.LogLevel)
	logging.Init(level, os.Stdout)

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("bootstrap", err, "failed to initialize services")
		return nil, err
	}

	addr := net.JoinHostPort(cfg.MCP.Host, strconv.Itoa(cfg.MCP.Port))
	return &Application{
		config:   cfg,
		services: services,
		server:   &http.Server{Addr: addr, Handler: services.Handler},
	}, nil
}

// Run starts the HTTP listener and blocks until ctx is cancelled or a
// SIGINT/SIGTERM arrives, then shuts everything down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.config.Debug {
		a.printStartupBanner()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		mode := text.FgYellow.Sprint("sandbox")
		if a.config.Enable.IsProduction() {
			mode = text.FgGreen.Sprint("production")
		}
		logging.Info("bootstrap", "listening on %s (%s mode)", a.server.Addr, mode)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logging.Info("bootstrap", "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			logging.Error("bootstrap", err, "server shutdown did not complete cleanly")
		}

		a.services.Store.Close()
		a.services.Sessions.Close()
		return nil
	})

	return g.Wait()
}

// printStartupBanner renders the bound HTTP routes and the active tool
// catalogue as tables on stdout, for `serve --debug`.
func (a *Application) printStartupBanner() {
	routes := table.NewWriter()
	routes.SetOutputMirror(os.Stdout)
	routes.SetTitle("Bound routes")
	routes.AppendHeader(table.Row{"#", "Path"})
	for i, path := range httpapi.BoundRoutes {
		routes.AppendRow(table.Row{i + 1, path})
	}
	routes.Render()

	catalogue := table.NewWriter()
	catalogue.SetOutputMirror(os.Stdout)
	catalogue.SetTitle("Tool catalogue")
	catalogue.AppendHeader(table.Row{"Name", "Protected", "Description"})
	for _, def := range a.services.Registry.List() {
		catalogue.AppendRow(table.Row{def.Name, def.Protected, def.Description})
	}
	catalogue.Render()
}
