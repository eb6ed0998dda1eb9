package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/industrisk/falloutsim/internal/domain"
	"github.com/industrisk/falloutsim/internal/engine"
	"github.com/industrisk/falloutsim/internal/store"
)

type stubService struct {
	submitErr  error
	statusErr  error
	profileErr error
	cancelErr  error
	pingErr    error

	task   domain.Task
	tasks  []domain.Task
	impact domain.CumulativeImpact

	lastRequest domain.CalamityRequest
	lastStatus  domain.TaskStatus
	lastLimit   int
	lastCenter  domain.Geo
	lastRadius  float64
}

func (s *stubService) Submit(_ context.Context, req domain.CalamityRequest) (domain.Task, error) {
	s.lastRequest = req
	return s.task, s.submitErr
}

func (s *stubService) Status(_ context.Context, id string) (domain.Task, error) {
	return s.task, s.statusErr
}

func (s *stubService) RiskProfile(_ context.Context, id string) (domain.Task, error) {
	return s.task, s.profileErr
}

func (s *stubService) List(_ context.Context, status domain.TaskStatus, limit int) ([]domain.Task, error) {
	s.lastStatus = status
	s.lastLimit = limit
	return s.tasks, nil
}

func (s *stubService) Cancel(_ context.Context, id string) (domain.Task, error) {
	return s.task, s.cancelErr
}

func (s *stubService) CumulativeImpact(_ context.Context, center domain.Geo, radiusKm float64) (domain.CumulativeImpact, error) {
	s.lastCenter = center
	s.lastRadius = radiusKm
	return s.impact, nil
}

func (s *stubService) Ping(_ context.Context) error {
	return s.pingErr
}

func newTestServer(svc SimulationService) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(":0", svc, logger)
}

func doRequest(t *testing.T, srv *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestSubmit(t *testing.T) {
	svc := &stubService{task: domain.Task{ID: "sim_tox_abc12345", Status: domain.StatusQueued}}
	srv := newTestServer(svc)

	t.Run("accepts valid request", func(t *testing.T) {
		body := []byte(`{"site_id": "FAC001", "calamity_type": "flood", "magnitude": 2.5}`)
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/simulation/calamity", body)

		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var resp struct {
			domain.Task
			EstimatedCompletionSeconds int `json:"estimated_completion_seconds"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "sim_tox_abc12345", resp.ID)
		assert.Equal(t, domain.StatusQueued, resp.Status)
		assert.Equal(t, 120, resp.EstimatedCompletionSeconds)

		assert.Equal(t, "FAC001", svc.lastRequest.SiteID)
		assert.Equal(t, "flood", svc.lastRequest.CalamityType)
		assert.Equal(t, 2.5, svc.lastRequest.Magnitude)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/simulation/calamity", []byte(`{not json`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects missing site_id", func(t *testing.T) {
		body := []byte(`{"calamity_type": "flood", "magnitude": 2.5}`)
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/simulation/calamity", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "site_id")
	})

	t.Run("rejects missing calamity_type", func(t *testing.T) {
		body := []byte(`{"site_id": "FAC001", "magnitude": 2.5}`)
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/simulation/calamity", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "calamity_type")
	})

	t.Run("maps submit failures to 500", func(t *testing.T) {
		failing := &stubService{submitErr: assert.AnError}
		rec := doRequest(t, newTestServer(failing), http.MethodPost, "/api/v1/simulation/calamity",
			[]byte(`{"site_id": "FAC001", "calamity_type": "fire", "magnitude": 1}`))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestStatus(t *testing.T) {
	t.Run("returns task", func(t *testing.T) {
		svc := &stubService{task: domain.Task{ID: "sim_tox_abc12345", Status: domain.StatusProcessing, Progress: 40}}
		rec := doRequest(t, newTestServer(svc), http.MethodGet, "/api/v1/simulation/status/sim_tox_abc12345", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var task domain.Task
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
		assert.Equal(t, domain.StatusProcessing, task.Status)
		assert.Equal(t, 40, task.Progress)
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		svc := &stubService{statusErr: store.ErrTaskNotFound}
		rec := doRequest(t, newTestServer(svc), http.MethodGet, "/api/v1/simulation/status/nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRiskProfile(t *testing.T) {
	t.Run("returns completed task", func(t *testing.T) {
		svc := &stubService{task: domain.Task{
			ID:     "sim_tox_abc12345",
			Status: domain.StatusCompleted,
			Result: &domain.Result{CriticalRadiusKm: 4.5},
		}}
		rec := doRequest(t, newTestServer(svc), http.MethodGet, "/api/v1/simulation/risk-profile/sim_tox_abc12345", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var task domain.Task
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
		require.NotNil(t, task.Result)
		assert.Equal(t, 4.5, task.Result.CriticalRadiusKm)
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		svc := &stubService{profileErr: store.ErrTaskNotFound}
		rec := doRequest(t, newTestServer(svc), http.MethodGet, "/api/v1/simulation/risk-profile/nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unfinished simulation is 409", func(t *testing.T) {
		svc := &stubService{profileErr: engine.ErrResultNotReady}
		rec := doRequest(t, newTestServer(svc), http.MethodGet, "/api/v1/simulation/risk-profile/sim_tox_abc12345", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestList(t *testing.T) {
	t.Run("returns simulations with count", func(t *testing.T) {
		svc := &stubService{tasks: []domain.Task{{ID: "a"}, {ID: "b"}}}
		rec := doRequest(t, newTestServer(svc), http.MethodGet, "/api/v1/simulation/list?status=COMPLETED&limit=5", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Simulations []domain.Task `json:"simulations"`
			Count       int           `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Simulations, 2)
		assert.Equal(t, 2, resp.Count)

		assert.Equal(t, domain.StatusCompleted, svc.lastStatus)
		assert.Equal(t, 5, svc.lastLimit)
	})

	t.Run("defaults limit to 50", func(t *testing.T) {
		svc := &stubService{}
		rec := doRequest(t, newTestServer(svc), http.MethodGet, "/api/v1/simulation/list", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 50, svc.lastLimit)
	})

	t.Run("empty result serializes as array", func(t *testing.T) {
		rec := doRequest(t, newTestServer(&stubService{}), http.MethodGet, "/api/v1/simulation/list", nil)
		assert.Contains(t, rec.Body.String(), `"simulations":[]`)
	})

	t.Run("rejects bad limit", func(t *testing.T) {
		rec := doRequest(t, newTestServer(&stubService{}), http.MethodGet, "/api/v1/simulation/list?limit=abc", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCancel(t *testing.T) {
	t.Run("cancels running simulation", func(t *testing.T) {
		svc := &stubService{task: domain.Task{ID: "sim_tox_abc12345", Status: domain.StatusFailed, Error: "simulation cancelled"}}
		rec := doRequest(t, newTestServer(svc), http.MethodPost, "/api/v1/simulation/cancel/sim_tox_abc12345", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var task domain.Task
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
		assert.Equal(t, domain.StatusFailed, task.Status)
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		svc := &stubService{cancelErr: store.ErrTaskNotFound}
		rec := doRequest(t, newTestServer(svc), http.MethodPost, "/api/v1/simulation/cancel/nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("finished simulation is 409", func(t *testing.T) {
		svc := &stubService{cancelErr: engine.ErrTaskFinished}
		rec := doRequest(t, newTestServer(svc), http.MethodPost, "/api/v1/simulation/cancel/sim_tox_abc12345", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestCumulativeImpact(t *testing.T) {
	t.Run("returns aggregate", func(t *testing.T) {
		svc := &stubService{impact: domain.CumulativeImpact{
			TotalFacilities:  3,
			TotalEmissionsKg: 45000,
			RiskScore:        45.0,
			RiskLevel:        "Moderate",
		}}
		rec := doRequest(t, newTestServer(svc), http.MethodGet, "/api/v1/impact/cumulative?lat=52.1&lon=4.3&radius_km=25", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var impact domain.CumulativeImpact
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &impact))
		assert.Equal(t, 3, impact.TotalFacilities)
		assert.Equal(t, "Moderate", impact.RiskLevel)

		assert.Equal(t, domain.Geo{Lat: 52.1, Lon: 4.3}, svc.lastCenter)
		assert.Equal(t, 25.0, svc.lastRadius)
	})

	t.Run("defaults radius to 10", func(t *testing.T) {
		svc := &stubService{}
		rec := doRequest(t, newTestServer(svc), http.MethodGet, "/api/v1/impact/cumulative?lat=52.1&lon=4.3", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 10.0, svc.lastRadius)
	})

	t.Run("rejects invalid coordinates", func(t *testing.T) {
		srv := newTestServer(&stubService{})
		for _, target := range []string{
			"/api/v1/impact/cumulative?lon=4.3",
			"/api/v1/impact/cumulative?lat=91&lon=4.3",
			"/api/v1/impact/cumulative?lat=52.1&lon=181",
			"/api/v1/impact/cumulative?lat=52.1&lon=4.3&radius_km=-1",
		} {
			rec := doRequest(t, srv, http.MethodGet, target, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	t.Run("healthz is always healthy", func(t *testing.T) {
		rec := doRequest(t, newTestServer(&stubService{}), http.MethodGet, "/healthz", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "healthy")
	})

	t.Run("readyz reflects ping", func(t *testing.T) {
		rec := doRequest(t, newTestServer(&stubService{}), http.MethodGet, "/readyz", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(t, newTestServer(&stubService{pingErr: assert.AnError}), http.MethodGet, "/readyz", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	rec := doRequest(t, newTestServer(&stubService{}), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
