package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/store"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// RecordStore is the store surface the read API consumes.
type RecordStore interface {
	ReadinessChecker
	Snapshot() store.Snapshot
	RequestLoad(ctx context.Context, period domain.Period, severity domain.Severity) bool
	SelectRecord(id string)
	SelectedRecord() (domain.SeismicRecord, bool)
}

// Server exposes the record API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	store      RecordStore
	period     domain.Period
	severity   domain.Severity
	logger     *slog.Logger
}

// NewServer creates an HTTP server. period and severity are used by
// POST /api/load when the request does not name a selector.
func NewServer(addr string, st RecordStore, period domain.Period, severity domain.Severity, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:    st,
		period:   period,
		severity: severity,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(st))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/records", s.handleRecords)
	mux.HandleFunc("POST /api/load", s.handleLoad)
	mux.HandleFunc("GET /api/selection", s.handleGetSelection)
	mux.HandleFunc("PUT /api/selection/{id}", s.handleSelect)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
