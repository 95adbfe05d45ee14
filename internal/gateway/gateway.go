// ABOUTME: Gateway orchestrator wiring auth, sessions, backends, and streaming
// ABOUTME: Owns the HTTP server and the Redis event source lifecycle

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hermeslabs/hermes-gateway/internal/auth"
	"github.com/hermeslabs/hermes-gateway/internal/clients"
	"github.com/hermeslabs/hermes-gateway/internal/config"
	"github.com/hermeslabs/hermes-gateway/internal/session"
	"github.com/hermeslabs/hermes-gateway/internal/store"
	"github.com/hermeslabs/hermes-gateway/internal/stream"
)

// Gateway is the top-level orchestrator. It owns every component and wires
// them together: token issuer, session store, backend clients, workspace
// store, and the streaming hub with its Redis event source.
type Gateway struct {
	config *config.Config
	logger *slog.Logger

	issuer       *auth.Issuer
	sessions     *session.Store
	identity     clients.IdentityClient
	controlPlane clients.ControlPlaneClient
	memory       clients.MemoryClient
	workspaces   store.Store

	hub    *stream.Hub
	source *stream.Source
	redis  *redis.Client

	metrics    *metricSet
	httpServer *http.Server
}

// New creates a gateway from configuration. It connects to Redis, opens the
// workspace database, and builds the HTTP routing table, but does not start
// serving; call Run for that.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "gateway")

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	redisClient := redis.NewClient(opts)

	issuer, err := auth.NewIssuer(
		[]byte(cfg.Auth.JWTSecret),
		time.Duration(cfg.Auth.AccessTokenHours)*time.Hour,
	)
	if err != nil {
		return nil, fmt.Errorf("creating token issuer: %w", err)
	}

	workspaces, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("opening workspace store: %w", err)
	}

	metrics := newMetricSet()
	hub := stream.NewHub(logger, metrics)

	g := &Gateway{
		config:       cfg,
		logger:       logger,
		issuer:       issuer,
		sessions:     session.NewStore(redisClient, logger),
		identity:     clients.NewIdentityClient(cfg.Backends.IAMServiceURL),
		controlPlane: clients.NewControlPlaneClient(cfg.Backends.ControlPlaneURL),
		memory:       clients.NewMemoryClient(cfg.Backends.MemoryServiceURL),
		workspaces:   workspaces,
		hub:          hub,
		source:       stream.NewSource(redisClient, hub, logger),
		redis:        redisClient,
		metrics:      metrics,
	}

	g.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           corsMiddleware(g.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return g, nil
}

// routes builds the gateway's routing table. Login and refresh are the only
// API routes outside the auth middleware.
func (g *Gateway) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/api/auth/login", g.handleLogin)
	mux.HandleFunc("/api/auth/refresh", g.handleRefresh)

	if g.config.Metrics.Enabled {
		mux.Handle(g.config.Metrics.Path, promhttp.HandlerFor(
			g.metrics.registry,
			promhttp.HandlerOpts{},
		))
	}

	protected := http.NewServeMux()
	protected.HandleFunc("/api/auth/logout", g.handleLogout)
	protected.HandleFunc("/api/auth/me", g.handleMe)
	protected.HandleFunc("/api/executions", g.handleExecutions)
	protected.HandleFunc("/api/executions/", g.handleExecutionByID)
	protected.HandleFunc("/api/memory/store", g.handleMemoryStore)
	protected.HandleFunc("/api/memory/search", g.handleMemorySearch)
	protected.HandleFunc("/api/memory/query", g.handleMemoryQuery)
	protected.HandleFunc("/api/workspaces", g.handleWorkspaces)
	protected.HandleFunc("/api/workspaces/", g.handleWorkspaceByID)
	protected.Handle("/ws/logs", stream.NewHandler(
		g.hub,
		g.config.Stream.HeartbeatInterval,
		g.logger,
		g.metrics,
	))

	requireAuth := auth.Middleware(g.issuer, g.sessions, g.logger)
	mux.Handle("/api/", requireAuth(protected))
	mux.Handle("/ws/", requireAuth(protected))

	return mux
}

// handleHealth reports liveness plus Redis reachability. A degraded Redis
// turns the body status to "degraded" but keeps the 200, so orchestrators
// don't restart the gateway over a backend outage.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"

	pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := g.redis.Ping(pingCtx).Err(); err != nil {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// Run starts the HTTP server and the Redis event source, and blocks until
// the context is cancelled or the server fails. Shutdown is graceful:
// in-flight requests get a drain window before the listener closes.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", g.config.Server.HTTPAddr, err)
	}

	sourceCtx, cancelSource := context.WithCancel(ctx)
	defer cancelSource()

	sourceErr := make(chan error, 1)
	go func() {
		sourceErr <- g.source.Run(sourceCtx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		serverErr <- g.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		g.logger.Info("shutting down")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.close()
			return fmt.Errorf("http server: %w", err)
		}
	case err := <-sourceErr:
		if err != nil {
			g.close()
			return fmt.Errorf("event source: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := g.httpServer.Shutdown(shutdownCtx); err != nil {
		g.logger.Warn("shutdown incomplete", "error", err)
	}

	g.close()
	return nil
}

// Addr returns the configured listen address. Useful for logging and tests.
func (g *Gateway) Addr() string {
	return g.config.Server.HTTPAddr
}

func (g *Gateway) close() {
	if err := g.workspaces.Close(); err != nil {
		g.logger.Warn("closing workspace store", "error", err)
	}
	if err := g.redis.Close(); err != nil {
		g.logger.Warn("closing redis client", "error", err)
	}
}

// corsMiddleware applies a permissive CORS policy. The gateway fronts
// browser clients on other origins; tightening the allowed origin list is
// a deployment concern.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
