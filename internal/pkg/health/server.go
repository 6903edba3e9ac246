// Package health serves liveness, metrics and the last cycle report.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Vodeneev/sharpedge/internal/pipeline"
	"github.com/Vodeneev/sharpedge/internal/pkg/alias"
)

type Server struct {
	service string
	started time.Time
	aliases *alias.Store
	metrics http.Handler

	last atomic.Pointer[pipeline.CycleReport]
}

// NewServer builds the ops server. aliases and metricsHandler may be nil.
func NewServer(service string, aliases *alias.Store, metricsHandler http.Handler) *Server {
	return &Server{
		service: service,
		started: time.Now(),
		aliases: aliases,
		metrics: metricsHandler,
	}
}

// SetLastReport publishes a finished cycle on /cycles/last and /health.
func (s *Server) SetLastReport(r *pipeline.CycleReport) {
	if r != nil {
		s.last.Store(r)
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/ping", handlePing)
	r.Get("/health", s.handleHealth)
	r.Get("/cycles/last", s.handleLastCycle)
	r.Get("/aliases/version", s.handleAliasVersion)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, readHeaderTimeout time.Duration) error {
	if readHeaderTimeout <= 0 {
		return fmt.Errorf("read_header_timeout must be positive")
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Health server listening", "service", s.service, "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

func AddrFor(port int) (string, error) {
	if port <= 0 {
		return "", fmt.Errorf("health port must be greater than 0")
	}
	return fmt.Sprintf(":%d", port), nil
}
