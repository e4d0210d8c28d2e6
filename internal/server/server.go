// Package server owns the chi router, middleware stack, and process
// lifecycle for the HTTP API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/talk2data/talk2data/internal/graph"
	"github.com/talk2data/talk2data/internal/handler"
	"github.com/talk2data/talk2data/internal/openapi"
	"github.com/talk2data/talk2data/internal/orchestrator"
	"github.com/talk2data/talk2data/internal/server/middleware"
	"github.com/talk2data/talk2data/internal/warehouse"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host              string
	Port              int
	CORSOrigins       []string
	RequestsPerMinute int
	APIKey            string
	ShutdownTimeout   time.Duration
	Version           string
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              8080,
		CORSOrigins:       []string{"*"},
		RequestsPerMinute: 120,
		ShutdownTimeout:   30 * time.Second,
		Version:           "dev",
	}
}

// Server is the top-level HTTP server. It owns the router and delegates all
// pipeline work to the orchestrator.
type Server struct {
	cfg        Config
	router     chi.Router
	pipeline   *orchestrator.Orchestrator
	graphStore *graph.Store
	executor   warehouse.Executor
	httpServer *http.Server
	logger     *slog.Logger
}

// New wires routes and middleware and returns a server ready to listen.
func New(cfg Config, pipeline *orchestrator.Orchestrator, graphStore *graph.Store, executor warehouse.Executor, logger *slog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		pipeline:   pipeline,
		graphStore: graphStore,
		executor:   executor,
		logger:     logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))

	// Probes and the contract are unauthenticated.
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	spec := openapi.Spec("/", s.cfg.Version)
	r.Get("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(spec)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(s.cfg.RequestsPerMinute))
		r.Use(middleware.APIKey(s.cfg.APIKey))

		queryHandler := handler.NewQueryHandler(s.pipeline)
		sessionHandler := handler.NewSessionHandler(s.pipeline.Sessions())

		r.Post("/query", queryHandler.Submit)
		r.Post("/complete", queryHandler.Complete)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", sessionHandler.List)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Delete("/", sessionHandler.Delete)
				r.Get("/metadata", sessionHandler.Metadata)
				r.Get("/sql", sessionHandler.SQL)
				r.Get("/results", sessionHandler.Results)
				r.Get("/summary", sessionHandler.Summary)
				r.Get("/visualization", sessionHandler.Visualization)
			})
		})
	})

	s.router = r
}

// handleHealthz is the liveness probe.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz reports readiness: the graph store and the warehouse must
// both answer a ping.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	checks := make(map[string]string)

	if err := s.graphStore.Ping(r.Context()); err != nil {
		checks["graph"] = "error: " + err.Error()
		status = "degraded"
	} else {
		checks["graph"] = "ok"
	}
	if err := s.executor.Ping(r.Context()); err != nil {
		checks["warehouse"] = "error: " + err.Error()
		status = "degraded"
	} else {
		checks["warehouse"] = "ok"
	}

	httpStatus := http.StatusOK
	if status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]any{"status": status, "checks": checks})
}

// ListenAndServe starts the server and blocks until SIGINT or SIGTERM, then
// drains in-flight requests before returning.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
