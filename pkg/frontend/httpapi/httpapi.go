// Package httpapi exposes the spatial index engine over plain net/http:
// named indices are built via POST /v1/indices and queried via
// /v1/indices/{name}/{nearest,knn,radius}, behind auth, rate-limit,
// CORS, and request-logging middleware.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nearestk/spatialindex/internal/metrics"
	"github.com/nearestk/spatialindex/internal/xlog"
	"github.com/nearestk/spatialindex/pkg/engine"
	"github.com/nearestk/spatialindex/pkg/frontend/auth"
	"github.com/nearestk/spatialindex/pkg/frontend/ratelimit"
	"github.com/nearestk/spatialindex/pkg/index"
	"github.com/nearestk/spatialindex/pkg/metric"
)

// Config holds the HTTP frontend's own configuration, separate from
// pkg/config.Config so this package stays importable without pulling in
// the rest of the service's wiring concerns.
type Config struct {
	Host        string
	Port        int
	CORSEnabled bool
	CORSOrigins []string
	Auth        auth.Config
	RateLimit   ratelimit.Config

	// DefaultKind and DefaultMetric fill in create requests that omit the
	// corresponding field; empty values fall back to "kdtree" and "l2".
	DefaultKind   string
	DefaultMetric string
	// MaxQueryK caps caller-supplied k values; 0 means uncapped.
	MaxQueryK int
	// EnsembleLinear includes the linear scanner in ensemble races.
	EnsembleLinear bool
}

// Server is the HTTP frontend over a set of named float64-coordinate
// indices. Every index is built via pkg/index.Create and keyed by name.
type Server struct {
	cfg        Config
	log        *xlog.Logger
	metrics    *metrics.Metrics
	mux        *http.ServeMux
	httpServer *http.Server

	mu      sync.RWMutex
	indices map[string]namedIndex
}

type namedIndex struct {
	kind   index.Kind
	metric metric.Kind
	method engine.SearchMethod[float64, json.RawMessage]
}

// New builds a Server with its route table wired but not yet listening.
func New(cfg Config, log *xlog.Logger, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:     cfg,
		log:     log,
		metrics: m,
		mux:     http.NewServeMux(),
		indices: make(map[string]namedIndex),
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.withMiddleware(s.mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Address returns the host:port the server listens on.
func (c Config) Address() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/v1/health", s.handleHealth)
	s.mux.HandleFunc("/v1/indices", s.handleCreateIndex)
	s.mux.HandleFunc("/v1/indices/", s.handleIndexOp)
}

func (s *Server) withMiddleware(h http.Handler) http.Handler {
	h = s.loggingMiddleware(h)
	if s.cfg.CORSEnabled {
		h = corsMiddleware(s.cfg.CORSOrigins)(h)
	}
	h = ratelimit.Middleware(ratelimit.New(s.cfg.RateLimit))(h)
	h = auth.Middleware(s.cfg.Auth)(h)
	return h
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.log.Info("request", "method", r.Method, "path", r.URL.Path, "status", wrapped.status, "duration", time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := len(allowedOrigins) == 0
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					allowed = true
					break
				}
			}
			if allowed {
				if origin == "" {
					origin = "*"
				}
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Start begins serving; it blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info("starting http frontend", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("httpapi: listen: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, map[string]any{"error": message, "status": status}, status)
}
