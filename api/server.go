// Package api provides the HTTP REST API for liftwise.
//
// Endpoints:
//
//	GET  /health               - liveness probe
//	GET  /ready                - readiness probe (pings the database)
//	POST /api/v1/chat          - coaching response (JSON request/response)
//	GET  /api/v1/chat?prompt=  - one-shot coaching response, cache-backed
//	POST /api/v1/weekly-plan   - generate a weekly training plan draft
//	POST /api/v1/analysis      - health day-series analysis (direct mode)
//	GET  /api/v1/stats         - runtime configuration and availability
//
// The probes sit outside the middleware chain so load balancers see them
// even when the rate limiter is saturated.
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: request ID, logging, recovery, CORS, rate limiting
//   - health.go: health check endpoints (/health, /ready)
//   - chat.go: coaching response endpoints
//   - plan.go: weekly plan endpoint
//   - analysis.go: day-series analysis endpoint
//   - stats.go: runtime stats endpoint
//   - response.go: JSON response helpers
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/liftwise/liftwise/internal/cache"
	"github.com/liftwise/liftwise/internal/coach"
	"github.com/liftwise/liftwise/internal/log"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Generation against a slow model can take a while, so this is generous.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on
	// keep-alive connections.
	IdleTimeout = 120 * time.Second

	// defaultRateLimit is the per-IP refill rate in requests per second.
	defaultRateLimit = 5.0

	// defaultRateBurst is the per-IP token bucket size.
	defaultRateBurst = 10
)

var errMissingCoach = errors.New("api: coach is required")

// Coach produces coaching responses. Satisfied by *coach.Coach.
type Coach interface {
	Respond(ctx context.Context, input string, history []coach.Turn) string
	RespondDirect(ctx context.Context, input string, history []coach.Turn) string
	PrimaryModel() string
	FallbackModel() string
	AgentAvailable() bool
	RetrieverAvailable() bool
}

// Planner generates weekly training plan drafts. Satisfied by
// *planner.Planner.
type Planner interface {
	Generate(ctx context.Context) string
}

// Config holds the dependencies for the HTTP server.
type Config struct {
	Coach   Coach
	Planner Planner

	// Cache is the response cache for the GET chat endpoint. Optional.
	Cache *cache.Cache

	// Pool is the database pool used by the readiness probe. Optional.
	Pool *pgxpool.Pool

	Logger log.Logger

	// CORSOrigins lists origins allowed to call the API. Empty disables CORS.
	CORSOrigins []string

	// RateLimit is the per-IP refill rate in requests per second.
	// Zero uses defaultRateLimit.
	RateLimit float64

	// RateBurst is the per-IP token bucket size. Zero uses defaultRateBurst.
	RateBurst int

	// TrustProxy enables X-Real-IP / X-Forwarded-For for rate limit keys.
	// Only set behind a reverse proxy.
	TrustProxy bool
}

// Server is the HTTP server for the liftwise REST API.
type Server struct {
	handler http.Handler
	logger  log.Logger
}

// NewServer creates a new HTTP server with all routes registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Coach == nil {
		return nil, errMissingCoach
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = defaultRateBurst
	}

	api := http.NewServeMux()
	NewChatHandler(cfg.Coach, cfg.Cache, logger).RegisterRoutes(api)
	NewPlanHandler(cfg.Planner, logger).RegisterRoutes(api)
	NewAnalysisHandler(cfg.Coach, logger).RegisterRoutes(api)
	NewStatsHandler(cfg.Coach, cfg.Cache).RegisterRoutes(api)

	// Middleware order: first wraps outermost.
	chained := chain(api,
		recoveryMiddleware(logger),
		requestIDMiddleware,
		loggingMiddleware(logger),
		corsMiddleware(cfg.CORSOrigins),
		rateLimitMiddleware(newRateLimiter(cfg.RateLimit, cfg.RateBurst), cfg.TrustProxy, logger),
	)

	root := http.NewServeMux()
	NewHealthHandler(cfg.Pool, logger).RegisterRoutes(root)
	root.Handle("/api/v1/", chained)

	return &Server{handler: root, logger: logger}, nil
}

// Handler returns the HTTP handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
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
