// Package server exposes the repair pipeline over HTTP.
//
// Routes:
//
//	POST /v1/repair      repair one segment of a link
//	POST /v1/sweep       repair every diagonal segment of a link
//	POST /v1/candidates  list ranked candidates for one segment
//	GET  /healthz        liveness
//	GET  /version        build information
//
// Request bodies carry the pipeline options next to the diagram:
//
//	{"link": "a->b", "segment": 2, "min_corners": true, "diagram": {...}}
//
// Errors are returned as {"error": {"code": "...", "message": "..."}} with
// a status derived from the error code.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/orthofix/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// DefaultRequestTimeout bounds a single repair request.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultMaxBodyBytes bounds request bodies.
	DefaultMaxBodyBytes = 8 << 20

	shutdownTimeout = 10 * time.Second
)

// Options configures a [Server].
type Options struct {
	Addr           string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	// Defaults seeds every request's pipeline options. Request fields
	// that are set take precedence.
	Defaults pipeline.Options
}

// Server serves the repair API.
type Server struct {
	runner *pipeline.Runner
	logger *log.Logger
	opts   Options
}

// New creates a server around runner.
func New(runner *pipeline.Runner, logger *log.Logger, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, logger: logger, opts: opts}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Use(s.limitBody)
		r.Post("/repair", s.handleRun(pipeline.ModeRepair))
		r.Post("/sweep", s.handleRun(pipeline.ModeSweep))
		r.Post("/candidates", s.handleCandidates)
	})
	return r
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opts.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
