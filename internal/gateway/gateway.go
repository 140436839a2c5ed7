// Package gateway serves the optional admin HTTP surface: liveness,
// a JSON status snapshot of pools and breakers, and Prometheus metrics.
// It is observability of the gateway process itself, not a data surface.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status is the admin snapshot of the dispatch core.
type Status struct {
	Providers []ProviderStatus `json:"providers"`
}

// ProviderStatus is one provider's live state.
type ProviderStatus struct {
	Name         string `json:"name"`
	Available    bool   `json:"available"`
	PoolSize     int    `json:"pool_size"`
	KeysCooling  int    `json:"keys_cooling"`
	UsageCount   int64  `json:"usage_count"`
	CircuitState string `json:"circuit_state"`
	FailureCount int    `json:"failure_count"`
}

// StatusFunc produces the current snapshot.
type StatusFunc func() Status

// Server is the admin HTTP listener.
type Server struct {
	addr     string
	logger   *slog.Logger
	statusFn StatusFunc
	gatherer prometheus.Gatherer

	srv *http.Server
}

// NewServer creates the admin server. gatherer is the registry holding the
// gateway collectors.
func NewServer(addr string, statusFn StatusFunc, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:     addr,
		logger:   logger,
		statusFn: statusFn,
		gatherer: gatherer,
	}
}

// Start begins serving in the background. Serve errors other than a clean
// shutdown are logged, not fatal: the stdio transport keeps working
// without its admin surface.
func (s *Server) Start() {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)
	r.Get("/status", s.handleStatus)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.logger.Info("admin server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server failed", "error", err)
		}
	}()
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.statusFn())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
