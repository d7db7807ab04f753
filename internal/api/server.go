// Package api is the HTTP and websocket surface of the chat backend.
//
// Routes:
//
//	GET  /health, /ready                        probes (no auth)
//	GET  /ws?tenant_id=...                      widget websocket (no auth)
//	GET  /api/v1/widget/public/{tenantID}       widget config (no auth, open CORS)
//	*    /api/v1/...                            dashboard API (Bearer API key)
//
// Middleware order: recovery → request id → logging → CORS → rate limit.
// Tenant auth wraps the dashboard routes individually.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/chatly/chatly/internal/config"
	"github.com/chatly/chatly/internal/log"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds header reads to resist slowloris clients.
	ReadHeaderTimeout = 10 * time.Second

	ReadTimeout  = 30 * time.Second
	WriteTimeout = 60 * time.Second
	IdleTimeout  = 120 * time.Second

	// rateRefillPerSecond is the steady-state request rate per client IP.
	rateRefillPerSecond = 10
)

// Handlers bundles the route handlers the server mounts.
type Handlers struct {
	Health        *HealthHandler
	Conversations *ConversationHandler
	Knowledge     *KnowledgeHandler
	Widget        *WidgetHandler
	Stats         *StatsHandler
	Socket        *SocketHandler
}

// Server is the HTTP server.
type Server struct {
	mux    *http.ServeMux
	cfg    *config.Config
	logger log.Logger
}

// NewServer registers all routes and returns the server. resolver backs the
// tenant auth on dashboard routes.
func NewServer(cfg *config.Config, h Handlers, resolver KeyResolver, logger log.Logger) *Server {
	mux := http.NewServeMux()
	auth := tenantAuthMiddleware(resolver, logger)

	h.Health.RegisterRoutes(mux)
	h.Conversations.RegisterRoutes(mux, auth)
	h.Knowledge.RegisterRoutes(mux, auth)
	h.Widget.RegisterRoutes(mux, auth)
	h.Stats.RegisterRoutes(mux, auth)
	h.Socket.RegisterRoutes(mux)

	return &Server{mux: mux, cfg: cfg, logger: logger}
}

// Handler returns the mux with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	rl := newRateLimiter(rateRefillPerSecond, s.cfg.RateBurst)
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		requestIDMiddleware(),
		loggingMiddleware(s.logger),
		corsMiddleware(s.cfg.CORSOrigins),
		rateLimitMiddleware(rl, s.cfg.TrustProxy, s.logger),
	)
}

// Run starts the server and blocks until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
