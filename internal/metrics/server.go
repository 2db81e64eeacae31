package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Option configures the status API.
type Option func(*handlers)

// WithEventStats adds routed event counters to the responses.
func WithEventStats(s EventStats) Option {
	return func(h *handlers) { h.events = s }
}

// WithJournalStats adds journal writer counters to /stats.
func WithJournalStats(s JournalStats) Option {
	return func(h *handlers) { h.journal = s }
}

// NewRouter builds the status API routes.
func NewRouter(statuses StatusSource, opts ...Option) http.Handler {
	h := &handlers{statuses: statuses, started: time.Now()}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Get("/healthz", h.healthz)
	r.Get("/tournaments", h.listTournaments)
	r.Get("/tournaments/{id}", h.getTournament)
	r.Get("/stats", h.stats)
	r.Get("/version", h.version)
	return r
}

// Server runs the status API.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer creates a server for handler on port.
func NewServer(port int, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info("status server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server failed", "error", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown status server: %w", err)
	}
	return nil
}
