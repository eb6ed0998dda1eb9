// Package httpapi exposes the simulation REST API plus health, readiness,
// and metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/industrisk/falloutsim/internal/domain"
)

// SimulationService is the engine surface the API depends on.
type SimulationService interface {
	Submit(ctx context.Context, req domain.CalamityRequest) (domain.Task, error)
	Status(ctx context.Context, id string) (domain.Task, error)
	RiskProfile(ctx context.Context, id string) (domain.Task, error)
	List(ctx context.Context, status domain.TaskStatus, limit int) ([]domain.Task, error)
	Cancel(ctx context.Context, id string) (domain.Task, error)
	CumulativeImpact(ctx context.Context, center domain.Geo, radiusKm float64) (domain.CumulativeImpact, error)
	Ping(ctx context.Context) error
}

// Server wires the simulation service to HTTP routes.
type Server struct {
	httpServer *http.Server
	service    SimulationService
	logger     *slog.Logger
}

// NewServer creates the API server.
func NewServer(addr string, service SimulationService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service: service,
		logger:  logger,
	}

	mux.HandleFunc("POST /api/v1/simulation/calamity", s.handleSubmit)
	mux.HandleFunc("GET /api/v1/simulation/status/{id}", s.handleStatus)
	mux.HandleFunc("GET /api/v1/simulation/risk-profile/{id}", s.handleRiskProfile)
	mux.HandleFunc("GET /api/v1/simulation/list", s.handleList)
	mux.HandleFunc("POST /api/v1/simulation/cancel/{id}", s.handleCancel)
	mux.HandleFunc("GET /api/v1/impact/cumulative", s.handleCumulativeImpact)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

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

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.service.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
