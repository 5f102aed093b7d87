// Package server exposes the heatmap pipeline over HTTP.
//
// Routes:
//
//	POST   /v1/layout           dataset body -> layout JSON document
//	POST   /v1/render/{format}  dataset body -> svg, json or txt artifact
//	POST   /v1/shares           dataset body -> stored share {id, url}
//	GET    /v1/shares/{id}      stored share (counts a view)
//	DELETE /v1/shares/{id}      remove a share
//	GET    /healthz             liveness and build info
//	GET    /metrics             prometheus metrics
//
// Dataset bodies are JSON, YAML or TOML, chosen by Content-Type. Layout and
// render options are query parameters (see parseOptions); unset values fall
// back to the [layout] section of the configuration.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/revenuemap/pkg/config"
	"github.com/matzehuels/revenuemap/pkg/metrics"
	"github.com/matzehuels/revenuemap/pkg/pipeline"
	"github.com/matzehuels/revenuemap/pkg/share"
)

const (
	shutdownTimeout = 15 * time.Second
	cleanupInterval = time.Hour
)

// Server serves the HTTP API.
type Server struct {
	cfg     config.Config
	runner  *pipeline.Runner
	shares  share.Store
	metrics *metrics.Registry
	logger  *log.Logger

	cleanupEvery time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger (default log.Default()).
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithMetrics mounts /metrics for reg.
func WithMetrics(reg *metrics.Registry) Option { return func(s *Server) { s.metrics = reg } }

// New creates a server. A nil shares store selects an in-memory store.
func New(cfg *config.Config, runner *pipeline.Runner, shares share.Store, opts ...Option) *Server {
	if shares == nil {
		shares = share.NewMemoryStore()
	}
	s := &Server{
		cfg:    *cfg,
		runner: runner,
		shares: shares,
		logger: log.Default(),

		cleanupEvery: cleanupInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.limitBody)
		r.Post("/layout", s.handleLayout)
		r.Post("/render/{format}", s.handleRender)
		r.Post("/shares", s.handleCreateShare)
		r.Get("/shares/{id}", s.handleGetShare)
		r.Delete("/shares/{id}", s.handleDeleteShare)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: "NOT_FOUND", Message: "no such route"})
	})
	return r
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully. Expired shares are purged hourly while running; Run
// returns only after the purge loop has stopped, so callers may close the
// share store afterwards.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  2 * time.Minute,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	loopCtx, stopLoop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.cleanupLoop(loopCtx)
	}()
	defer func() {
		stopLoop()
		wg.Wait()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.shares.Cleanup(ctx)
			if err != nil {
				s.logger.Warn("share cleanup failed", "err", err)
				continue
			}
			if n > 0 {
				s.logger.Info("removed expired shares", "count", n)
			}
		}
	}
}
