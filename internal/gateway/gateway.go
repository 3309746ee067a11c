// ABOUTME: Gateway orchestrator that coordinates the HTTP server and session hub
// ABOUTME: Manages store, analyst pipeline, routes, and graceful shutdown lifecycle

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/provenly/resale-gateway/internal/analyst"
	"github.com/provenly/resale-gateway/internal/config"
	"github.com/provenly/resale-gateway/internal/hub"
	"github.com/provenly/resale-gateway/internal/store"
)

// Gateway orchestrates the resale-gateway server components.
// It owns the HTTP server, the connection hub, the session store, and the
// analyst pipeline, and wires the WebSocket lifecycle between them.
type Gateway struct {
	config     *config.Config
	store      store.Store
	hub        *hub.Hub
	analyst    *analyst.Analyst
	httpServer *http.Server
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// initStore creates and returns a store based on config and environment.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("RESALE_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New creates a new Gateway instance with the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		config:  cfg,
		store:   s,
		hub:     hub.New(logger),
		analyst: analyst.New(logger),
		upgrader: websocket.Upgrader{
			// Browser clients connect cross-origin; access control is out of
			// scope for this backend, matching the allow-all CORS policy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/ping", g.handlePing)
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/health/ready", g.handleReady)

	mux.HandleFunc("/api/sessions", g.handleSessions)
	mux.HandleFunc("/api/sessions/", g.handleSessionRoutes)
	mux.HandleFunc("/api/listings", g.handleListListings)
	mux.HandleFunc("/api/listings/", g.handleGetListing)

	mux.HandleFunc("/ws/session/", g.handleSessionSocket)

	g.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           allowAllCORS(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return g, nil
}

// Run starts the gateway server and blocks until the context is canceled.
// Returns nil on graceful shutdown (context canceled), or an error if the
// server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is
// already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown gracefully stops the HTTP server and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	// Shutdown never touches hijacked WebSocket transports; closing them
	// through the hub is what ends the per-connection read loops.
	g.hub.Close()
	if err := g.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// Handler returns the gateway's HTTP handler, for tests that mount it on an
// httptest server.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

// handlePing implements the liveness probe used by the demo frontend.
func (g *Gateway) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"msg":"pong"}`))
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK once the store answers queries.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := g.store.ListListings(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d live sessions)", g.hub.SessionCount())
}
