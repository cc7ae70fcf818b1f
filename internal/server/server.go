// Package server implements the HTTP API for the Kanshi analytics dashboard.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mizuho-ai/kanshi/internal/ratelimit"
	"github.com/mizuho-ai/kanshi/internal/service/dashboard"
)

// Server is the Kanshi HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// Config holds all dependencies and settings for creating a Server.
// Limiter is optional (nil = no rate limiting); IngestKeyHash empty disables
// the ingest endpoint.
type Config struct {
	Service *dashboard.Service
	Limiter ratelimit.Limiter
	Logger  *slog.Logger

	Port          int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	Version       string
	IngestKeyHash string

	DefaultWindowHours int
	MaxWindowHours     int
}

// New creates an HTTP server with all routes configured.
func New(cfg Config) *Server {
	h := newHandlers(cfg)

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.NoopLimiter{}
	}
	limited := rateLimitMiddleware(limiter, cfg.Logger)

	mux := http.NewServeMux()
	mux.Handle("GET /health", http.HandlerFunc(h.HandleHealth))
	mux.Handle("GET /v1/dashboard", limited(http.HandlerFunc(h.HandleDashboard)))
	mux.Handle("GET /v1/records", limited(http.HandlerFunc(h.HandleListRecords)))
	mux.Handle("POST /v1/records", limited(requireIngestKey(cfg.IngestKeyHash, http.HandlerFunc(h.HandleIngestRecords))))

	var handler http.Handler = mux
	handler = recoverMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler: handler,
		logger:  cfg.Logger,
	}
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return <-errCh
}
