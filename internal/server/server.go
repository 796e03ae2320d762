// Package server exposes the relevance engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ricesearch/relevance/internal/bus"
	"github.com/ricesearch/relevance/internal/config"
	"github.com/ricesearch/relevance/internal/evaluation"
	"github.com/ricesearch/relevance/internal/metrics"
	"github.com/ricesearch/relevance/internal/pkg/logger"
	"github.com/ricesearch/relevance/internal/pkg/middleware"
	"github.com/ricesearch/relevance/internal/pkg/security"
	"github.com/ricesearch/relevance/internal/search"
)

// Server is the HTTP front end of the engine.
type Server struct {
	cfg        Config
	log        *logger.Logger
	httpServer *http.Server
	handler    http.Handler

	engine     *search.Engine
	catalog    *search.Collection
	bus        bus.Bus
	source     string
	metrics    *metrics.Pipeline
	evaluation *evaluation.Handler
	limiter    *middleware.RateLimiter

	mu      sync.RWMutex
	started bool
}

// Config configures the server.
type Config struct {
	// Host is the address to bind to.
	Host string

	// Port is the HTTP port.
	Port int

	// Version is the application version.
	Version string

	// ReadTimeout is the HTTP read timeout.
	ReadTimeout time.Duration

	// WriteTimeout is the HTTP write timeout.
	WriteTimeout time.Duration

	// ShutdownTimeout is the graceful shutdown timeout.
	ShutdownTimeout time.Duration

	// DefaultLimit is the result count when a request names none.
	DefaultLimit int

	// MaxLimit caps the result count a request may ask for.
	MaxLimit int

	Security config.SecurityConfig
}

// DefaultConfig returns sensible server defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		Version:         "dev",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		DefaultLimit:    security.DefaultLimit,
		MaxLimit:        security.MaxLimit,
		Security: config.SecurityConfig{
			RateBurst:       20,
			MaxRequestBytes: security.MaxRequestSize,
			MaxQueryLength:  security.MaxQueryLength,
		},
	}
}

// ConfigFrom derives the server configuration from the application config.
func ConfigFrom(cfg config.Config, version string) Config {
	return Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Version:         version,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		DefaultLimit:    cfg.Query.DefaultLimit,
		MaxLimit:        cfg.Query.MaxLimit,
		Security:        cfg.Security,
	}
}

// Deps are the services the server fronts.
type Deps struct {
	Engine  *search.Engine
	Catalog *search.Collection

	// Bus carries weight changes between instances. Optional.
	Bus bus.Bus

	// Source identifies this instance on the bus.
	Source string

	// Metrics provides the recorder and the /metrics handler. Optional.
	Metrics *metrics.Pipeline

	// Evaluation serves /v1/evaluation/run. Optional.
	Evaluation *evaluation.Handler

	Logger *logger.Logger
}

// New creates a new server.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Engine == nil {
		return nil, errors.New("server: engine is required")
	}
	if deps.Catalog == nil {
		deps.Catalog = search.NewCollection(nil)
	}
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultConfig().Port
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = security.DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = security.MaxLimit
	}

	s := &Server{
		cfg:        cfg,
		log:        deps.Logger.WithComponent("server"),
		engine:     deps.Engine,
		catalog:    deps.Catalog,
		bus:        deps.Bus,
		source:     deps.Source,
		metrics:    deps.Metrics,
		evaluation: deps.Evaluation,
		limiter: middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: cfg.Security.RateLimit,
			Burst:             cfg.Security.RateBurst,
		}),
	}

	if s.bus != nil {
		if err := s.subscribeWeights(context.Background()); err != nil {
			s.limiter.Close()
			return nil, fmt.Errorf("subscribing to weight updates: %w", err)
		}
	}

	s.handler = s.setupRoutes()
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// recorder returns the metrics recorder, or nil.
func (s *Server) recorder() *metrics.Recorder {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.Recorder
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server already started")
	}
	s.started = true

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.recorder().Set(metrics.CatalogDocuments, float64(s.catalog.Len()))
	s.log.Info("Starting HTTP server", "addr", addr, "documents", s.catalog.Len())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the server. The bus and metrics pipeline belong to
// the caller and stay open.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.limiter.Close()

	if !s.started {
		return nil
	}

	s.log.Info("Shutting down server...")

	shutdownCtx := ctx
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}

	var err error
	if s.httpServer != nil {
		if err = s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error("HTTP shutdown error", "error", err)
		}
	}

	s.started = false
	s.log.Info("Server stopped")

	return err
}

// Health reports whether the server is serving.
func (s *Server) Health() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// setupRoutes configures all HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /version", s.handleVersion)
	if h := s.metrics.Handler(); h != nil {
		mux.Handle("/metrics", h)
	}

	mux.HandleFunc("POST /v1/search", s.handleSearch)
	mux.HandleFunc("POST /v1/explain", s.handleExplain)
	mux.HandleFunc("POST /v1/parse", s.handleParse)
	mux.HandleFunc("POST /v1/match", s.handleMatch)
	mux.HandleFunc("POST /v1/expand", s.handleExpand)
	mux.HandleFunc("GET /v1/weights", s.handleGetWeights)
	mux.HandleFunc("PUT /v1/weights", s.handlePutWeights)
	mux.HandleFunc("GET /v1/documents", s.handleListDocuments)
	mux.HandleFunc("GET /v1/documents/{id}", s.handleGetDocument)

	if s.evaluation != nil {
		s.evaluation.RegisterRoutes(mux)
	}

	var h http.Handler = mux
	h = security.LimitBody(s.cfg.Security.MaxRequestBytes, h)
	h = security.RequireAPIKey(s.cfg.Security.APIKey, []string{"/healthz", "/readyz", "/version", "/metrics"}, h)
	h = s.limiter.Middleware(h)
	h = security.CORS(s.cfg.Security.CORSOriginList(), h)
	h = metrics.HTTPMiddleware(s.recorder(), h)
	h = LoggingMiddleware(s.log, h)
	h = RequestIDMiddleware(h)
	return h
}
