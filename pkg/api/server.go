// Package api exposes the tool-script pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/strombasis/mako-assistant/pkg/jobs"
	"github.com/strombasis/mako-assistant/pkg/logging"
	"github.com/strombasis/mako-assistant/pkg/ratelimit"
	"github.com/strombasis/mako-assistant/pkg/toolscript"
)

// Server wires the HTTP surface to the registry and the generator.
type Server struct {
	registry  *jobs.Registry
	generator *toolscript.Generator
	limiter   *ratelimit.Limiter
	log       *logging.Logger

	httpServer *http.Server
}

// ServerConfig configures the API server.
type ServerConfig struct {
	// Address to listen on (default: 127.0.0.1:8480)
	Address string

	Registry  *jobs.Registry
	Generator *toolscript.Generator
	Limiter   *ratelimit.Limiter
	Logger    *logging.Logger
}

// NewServer creates the API server and its router.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Address == "" {
		cfg.Address = "127.0.0.1:8480"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}

	s := &Server{
		registry:  cfg.Registry,
		generator: cfg.Generator,
		limiter:   cfg.Limiter,
		log:       cfg.Logger,
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the chi router. Exposed separately for tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/tools", func(r chi.Router) {
		r.Use(s.identity)
		r.Post("/run-node-script", s.rateLimit("submit", s.handleSubmitScript))
		r.Post("/generate-script", s.rateLimit("generate", s.handleGenerateScript))
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{jobID}", s.handleGetJob)
	})

	return r
}

// Start runs the HTTP listener until it fails or Stop is called.
func (s *Server) Start() error {
	s.log.Info(logging.CategoryAPI, "server_started", "listening",
		map[string]any{"address": s.httpServer.Addr})
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
