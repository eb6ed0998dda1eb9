package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/industrisk/falloutsim/internal/domain"
	"github.com/industrisk/falloutsim/internal/engine"
	"github.com/industrisk/falloutsim/internal/store"
)

// Nominal completion estimate reported to submitters. Actual duration is
// dominated by provider round-trips, not model time.
const estimatedCompletionSeconds = 120

// submitResponse is the accepted-task envelope with the completion estimate.
type submitResponse struct {
	domain.Task
	EstimatedCompletionSeconds int `json:"estimated_completion_seconds"`
}

// handleSubmit accepts a simulation request and returns 202 with the
// queued task. Semantic validation (calamity type, magnitude) happens
// asynchronously and surfaces on the task record.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req domain.CalamityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.SiteID == "" {
		writeError(w, http.StatusBadRequest, "site_id is required")
		return
	}
	if req.CalamityType == "" {
		writeError(w, http.StatusBadRequest, "calamity_type is required")
		return
	}

	task, err := s.service.Submit(r.Context(), req)
	if err != nil {
		s.logger.Error("submit failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to queue simulation")
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{
		Task:                       task,
		EstimatedCompletionSeconds: estimatedCompletionSeconds,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	task, err := s.service.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleRiskProfile returns the completed result: 404 for unknown ids,
// 409 while the simulation is still running or has failed.
func (s *Server) handleRiskProfile(w http.ResponseWriter, r *http.Request) {
	task, err := s.service.RiskProfile(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	status := domain.TaskStatus(r.URL.Query().Get("status"))

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	tasks, err := s.service.List(r.Context(), status, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"simulations": tasks,
		"count":       len(tasks),
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	task, err := s.service.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleCumulativeImpact(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		writeError(w, http.StatusBadRequest, "invalid lat")
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		writeError(w, http.StatusBadRequest, "invalid lon")
		return
	}

	radiusKm := 10.0
	if v := q.Get("radius_km"); v != "" {
		radiusKm, err = strconv.ParseFloat(v, 64)
		if err != nil || radiusKm <= 0 {
			writeError(w, http.StatusBadRequest, "invalid radius_km")
			return
		}
	}

	impact, err := s.service.CumulativeImpact(r.Context(), domain.Geo{Lat: lat, Lon: lon}, radiusKm)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, impact)
}

// writeServiceError maps engine errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "simulation not found")
	case errors.Is(err, engine.ErrResultNotReady):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrTaskFinished):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
