package internal

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hanzoai/oauth-proxy/internal/broker"
	"github.com/hanzoai/oauth-proxy/internal/config"
	"github.com/hanzoai/oauth-proxy/internal/log"
	"github.com/hanzoai/oauth-proxy/internal/server"
	"github.com/hanzoai/oauth-proxy/internal/statestore"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 10 * time.Second

// OAuthProxy is the assembled broker application: provider registry,
// pending-authorization store with its sweeper, flow orchestrator, and the
// HTTP gateway.
type OAuthProxy struct {
	config     config.Config
	httpServer *server.HTTPServer
	sweeper    *statestore.Sweeper
}

// NewOAuthProxy wires the application from configuration.
func NewOAuthProxy(cfg config.Config) *OAuthProxy {
	store := statestore.NewMemoryStore(cfg.StateTTL)
	sweeper := statestore.NewSweeper(store, cfg.SweepInterval)

	b := broker.New(store, cfg.CallbackBaseURL, cfg.UpstreamTimeout)
	handlers := server.NewFlowHandlers(b)

	return &OAuthProxy{
		config:     cfg,
		httpServer: server.NewHTTPServer(buildHTTPHandler(handlers), cfg.Addr()),
		sweeper:    sweeper,
	}
}

// buildHTTPHandler registers all routes with their middleware.
func buildHTTPHandler(handlers *server.FlowHandlers) http.Handler {
	mux := http.NewServeMux()

	flowLogger := server.NewLoggerMiddleware("flow")
	flowRecover := server.NewRecoverMiddleware("flow")
	flowMiddleware := []server.MiddlewareFunc{flowLogger, flowRecover}

	mux.Handle("GET /health", server.NewHealthHandler())

	mux.Handle("GET /{provider}", server.ChainMiddleware(http.HandlerFunc(handlers.InitiateHandler), flowMiddleware...))
	mux.Handle("GET /{provider}/callback", server.ChainMiddleware(http.HandlerFunc(handlers.CallbackHandler), flowMiddleware...))
	mux.Handle("POST /{provider}/refresh", server.ChainMiddleware(http.HandlerFunc(handlers.RefreshHandler), flowMiddleware...))
	mux.Handle("POST /{provider}/revoke", server.ChainMiddleware(http.HandlerFunc(handlers.RevokeHandler), flowMiddleware...))

	return mux
}

// Run starts the HTTP server and the state sweeper, then blocks until a
// shutdown signal or a server error, stopping both cleanly.
func (p *OAuthProxy) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p.sweeper.Start(ctx)
	defer p.sweeper.Stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.httpServer.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return p.httpServer.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.LogErrorWithFields("oauthproxy", "Shutting down due to error", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	log.LogInfoWithFields("oauthproxy", "Application shutdown complete", nil)
	return nil
}
