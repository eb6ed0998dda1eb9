package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/industrisk/falloutsim/internal/domain"
	"github.com/industrisk/falloutsim/internal/model"
	"github.com/industrisk/falloutsim/internal/observability"
	"github.com/industrisk/falloutsim/internal/store"
)

type stubFacilities struct {
	facility domain.Facility
	err      error
	near     []domain.Facility
	nearErr  error
}

func (s *stubFacilities) FacilityByID(context.Context, string) (domain.Facility, error) {
	if s.err != nil {
		return domain.Facility{}, s.err
	}
	return s.facility, nil
}

func (s *stubFacilities) FacilitiesNear(context.Context, domain.Geo, float64, int) ([]domain.Facility, error) {
	return s.near, s.nearErr
}

type stubWeather struct {
	conditions domain.WeatherConditions
	err        error
}

func (s *stubWeather) CurrentWeather(context.Context, domain.Geo) (domain.WeatherConditions, error) {
	if s.err != nil {
		return domain.WeatherConditions{}, s.err
	}
	return s.conditions, nil
}

// blockingWeather stalls until the lookup context is cancelled, simulating
// a hung provider.
type blockingWeather struct{}

func (blockingWeather) CurrentWeather(ctx context.Context, _ domain.Geo) (domain.WeatherConditions, error) {
	<-ctx.Done()
	return domain.WeatherConditions{}, ctx.Err()
}

type stubTerrain struct {
	elevation, slope float64
	err              error
}

func (s *stubTerrain) Elevation(context.Context, domain.Geo) (float64, error) {
	return s.elevation, s.err
}

func (s *stubTerrain) Slope(context.Context, domain.Geo) (float64, error) {
	return s.slope, s.err
}

type capturePublisher struct {
	mu    sync.Mutex
	tasks []domain.Task
	err   error
}

func (p *capturePublisher) PublishRiskProfile(_ context.Context, t domain.Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.tasks = append(p.tasks, t)
	return nil
}

func (p *capturePublisher) published() []domain.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Task(nil), p.tasks...)
}

func testFacility() domain.Facility {
	return domain.Facility{
		ID:   "fac-001",
		Name: "Riverside Chemical Works",
		Geo:  domain.Geo{Lat: 51.9, Lon: 4.4},
		Pollutants: []domain.Pollutant{
			{Name: "Ammonia", AmountKg: 500},
			{Name: "Chlorine", AmountKg: 250},
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, facilities domain.FacilityProvider, weather domain.WeatherProvider, terrain domain.TerrainProvider, pub Publisher) *Engine {
	t.Helper()
	e := New(
		store.NewMemoryStore(),
		model.DefaultRegistry(),
		facilities, weather, terrain, pub,
		testLogger(),
		observability.NewMetricsForTesting(),
		Options{},
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		e.Shutdown(ctx)
	})
	return e
}

func waitTerminal(t *testing.T, e *Engine, id string) domain.Task {
	t.Helper()
	var task domain.Task
	require.Eventually(t, func() bool {
		var err error
		task, err = e.Status(context.Background(), id)
		return err == nil && task.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return task
}

func TestEngineCompletesFlood(t *testing.T) {
	e := newTestEngine(t, &stubFacilities{facility: testFacility()}, nil, nil, nil)

	task, err := e.Submit(context.Background(), domain.CalamityRequest{
		SiteID:       "fac-001",
		CalamityType: "flood",
		Magnitude:    2.5,
		Unit:         "meters",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(task.ID, "sim_tox_"))
	assert.Equal(t, domain.StatusQueued, task.Status)
	assert.Equal(t, model.EngineHydrological, task.Engine)

	final := waitTerminal(t, e, task.ID)
	assert.Equal(t, domain.StatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.Equal(t, "Completed", final.CurrentStep)

	require.NotNil(t, final.Result)
	// Default slope of 5 degrees leaves the radius uncorrected.
	assert.Equal(t, 4.5, final.Result.CriticalRadiusKm)
	assert.Equal(t, 1.0, final.Result.TerrainSlopeFactor)

	require.NotNil(t, final.Result.Facility)
	assert.Equal(t, "fac-001", final.Result.Facility.ID)
	assert.Equal(t, "Riverside Chemical Works", final.Result.Facility.Name)
	assert.Equal(t, 100.0, final.Result.Facility.ElevationM)

	require.NotNil(t, final.Result.Weather)
	assert.Equal(t, "synthetic", final.Result.Weather.Source)

	got, err := e.RiskProfile(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, final.Result.CriticalRadiusKm, got.Result.CriticalRadiusKm)
}

func TestEngineCanonicalizesCalamityCase(t *testing.T) {
	e := newTestEngine(t, &stubFacilities{facility: testFacility()}, nil, nil, nil)

	task, err := e.Submit(context.Background(), domain.CalamityRequest{
		SiteID:       "fac-001",
		CalamityType: "Flood",
		Magnitude:    2.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "flood", task.Calamity)
	assert.Equal(t, model.EngineHydrological, task.Engine)

	final := waitTerminal(t, e, task.ID)
	assert.Equal(t, domain.StatusCompleted, final.Status)
}

func TestEngineRejectsUnknownCalamity(t *testing.T) {
	e := newTestEngine(t, nil, nil, nil, nil)

	task, err := e.Submit(context.Background(), domain.CalamityRequest{
		SiteID:       "fac-001",
		CalamityType: "tsunami",
		Magnitude:    3,
	})
	require.NoError(t, err)
	assert.Equal(t, model.EngineGeneric, task.Engine)

	final := waitTerminal(t, e, task.ID)
	assert.Equal(t, domain.StatusFailed, final.Status)
	assert.Equal(t, 0, final.Progress)
	assert.Contains(t, final.Error, "unknown calamity type")
	assert.Nil(t, final.Result)
}

func TestEngineRejectsNonPositiveMagnitude(t *testing.T) {
	e := newTestEngine(t, nil, nil, nil, nil)

	task, err := e.Submit(context.Background(), domain.CalamityRequest{
		SiteID:       "fac-001",
		CalamityType: "fire",
		Magnitude:    0,
	})
	require.NoError(t, err)

	final := waitTerminal(t, e, task.ID)
	assert.Equal(t, domain.StatusFailed, final.Status)
	assert.Equal(t, 0, final.Progress)
	assert.Contains(t, final.Error, "magnitude must be positive")
}

func TestEngineFacilityFallback(t *testing.T) {
	e := newTestEngine(t, &stubFacilities{err: domain.ErrFacilityNotFound}, nil, nil, nil)

	task, err := e.Submit(context.Background(), domain.CalamityRequest{
		SiteID:       "ghost-site",
		CalamityType: "earthquake",
		Magnitude:    5.5,
	})
	require.NoError(t, err)

	final := waitTerminal(t, e, task.ID)
	require.Equal(t, domain.StatusCompleted, final.Status)
	require.NotNil(t, final.Result.Facility)
	assert.Equal(t, "ghost-site", final.Result.Facility.ID)
	assert.Equal(t, "Unknown Facility", final.Result.Facility.Name)
	assert.Equal(t, domain.Geo{Lat: 45.0, Lon: 10.0}, final.Result.Facility.Location)

	// Synthetic inventory drives the release estimate: 1000 * 0.3 * 0.2.
	assert.InDelta(t, 60.0, final.Result.ReleasedPollutantsKg, 1e-9)
}

func TestEngineTerrainCorrection(t *testing.T) {
	e := newTestEngine(t,
		&stubFacilities{facility: testFacility()},
		nil,
		&stubTerrain{elevation: 420, slope: 20},
		nil)

	task, err := e.Submit(context.Background(), domain.CalamityRequest{
		SiteID:       "fac-001",
		CalamityType: "flood",
		Magnitude:    2.5,
	})
	require.NoError(t, err)

	final := waitTerminal(t, e, task.ID)
	require.Equal(t, domain.StatusCompleted, final.Status)

	// 4.5 km stretched by the steep-slope factor.
	assert.Equal(t, 1.3, final.Result.TerrainSlopeFactor)
	assert.InDelta(t, 5.85, final.Result.CriticalRadiusKm, 1e-9)
	assert.InDelta(t, 107.51, final.Result.Metrics.AffectedAreaKm2, 0.01)
	assert.Equal(t, 420.0, final.Result.Facility.ElevationM)
	assert.Equal(t, 20.0, final.Result.Facility.SlopeDeg)
}

func TestEngineWeatherOverride(t *testing.T) {
	observed := domain.WeatherConditions{
		Timestamp:        time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC),
		WindSpeedMS:      6.0,
		WindDirectionDeg: 180,
		TemperatureC:     22,
		PressureHPa:      1010,
		Source:           "observed",
	}
	e := newTestEngine(t,
		&stubFacilities{facility: testFacility()},
		&stubWeather{conditions: observed},
		nil, nil)

	wind := 1.0
	task, err := e.Submit(context.Background(), domain.CalamityRequest{
		SiteID:       "fac-001",
		CalamityType: "flood",
		Magnitude:    1,
		Meteorology:  &domain.WeatherOverride{WindSpeedMS: &wind},
	})
	require.NoError(t, err)

	final := waitTerminal(t, e, task.ID)
	require.Equal(t, domain.StatusCompleted, final.Status)
	require.NotNil(t, final.Result.Weather)

	assert.Equal(t, 1.0, final.Result.Weather.WindSpeedMS)
	assert.Equal(t, 180.0, final.Result.Weather.WindDirectionDeg)
	// Stability derived from the overridden calm wind at midday UTC.
	assert.Equal(t, domain.StabilityA, final.Result.Weather.Stability)
}

func TestEngineCancel(t *testing.T) {
	e := newTestEngine(t, &stubFacilities{facility: testFacility()}, blockingWeather{}, nil, nil)

	task, err := e.Submit(context.Background(), domain.CalamityRequest{
		SiteID:       "fac-001",
		CalamityType: "flood",
		Magnitude:    2,
	})
	require.NoError(t, err)

	// Wait for the run to reach the weather stage before cancelling.
	require.Eventually(t, func() bool {
		got, err := e.Status(context.Background(), task.ID)
		return err == nil && got.Progress >= 40
	}, 5*time.Second, 10*time.Millisecond)

	cancelled, err := e.Cancel(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, cancelled.Status)
	assert.Equal(t, "simulation cancelled", cancelled.Error)

	final := waitTerminal(t, e, task.ID)
	assert.Equal(t, domain.StatusFailed, final.Status)
	assert.Nil(t, final.Result)

	_, err = e.RiskProfile(context.Background(), task.ID)
	assert.ErrorIs(t, err, ErrResultNotReady)

	// A second cancel is rejected: the task is already terminal.
	_, err = e.Cancel(context.Background(), task.ID)
	assert.ErrorIs(t, err, ErrTaskFinished)
}

func TestEngineCancelUnknownTask(t *testing.T) {
	e := newTestEngine(t, nil, nil, nil, nil)
	_, err := e.Cancel(context.Background(), "sim_tox_missing")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestEnginePublishesCompletedProfiles(t *testing.T) {
	pub := &capturePublisher{}
	e := newTestEngine(t, &stubFacilities{facility: testFacility()}, nil, nil, pub)

	task, err := e.Submit(context.Background(), domain.CalamityRequest{
		SiteID:       "fac-001",
		CalamityType: "explosion",
		Magnitude:    1000,
	})
	require.NoError(t, err)

	final := waitTerminal(t, e, task.ID)
	require.Equal(t, domain.StatusCompleted, final.Status)

	require.Eventually(t, func() bool {
		return len(pub.published()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	got := pub.published()[0]
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, model.EngineBlast, got.Result.Engine)
}

func TestEnginePublishFailureDoesNotFailTask(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	e := newTestEngine(t, &stubFacilities{facility: testFacility()}, nil, nil, pub)

	task, err := e.Submit(context.Background(), domain.CalamityRequest{
		SiteID:       "fac-001",
		CalamityType: "fire",
		Magnitude:    50,
	})
	require.NoError(t, err)

	final := waitTerminal(t, e, task.ID)
	assert.Equal(t, domain.StatusCompleted, final.Status)
}

func TestEngineRiskProfileNotReady(t *testing.T) {
	e := newTestEngine(t, &stubFacilities{facility: testFacility()}, blockingWeather{}, nil, nil)

	task, err := e.Submit(context.Background(), domain.CalamityRequest{
		SiteID:       "fac-001",
		CalamityType: "flood",
		Magnitude:    1,
	})
	require.NoError(t, err)

	_, err = e.RiskProfile(context.Background(), task.ID)
	assert.ErrorIs(t, err, ErrResultNotReady)

	_, err = e.RiskProfile(context.Background(), "sim_tox_nope")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	_, err = e.Cancel(context.Background(), task.ID)
	require.NoError(t, err)
}

func TestEngineList(t *testing.T) {
	e := newTestEngine(t, &stubFacilities{facility: testFacility()}, nil, nil, nil)

	first, err := e.Submit(context.Background(), domain.CalamityRequest{SiteID: "fac-001", CalamityType: "flood", Magnitude: 1})
	require.NoError(t, err)
	second, err := e.Submit(context.Background(), domain.CalamityRequest{SiteID: "fac-001", CalamityType: "earthquake", Magnitude: 6})
	require.NoError(t, err)

	waitTerminal(t, e, first.ID)
	waitTerminal(t, e, second.ID)

	all, err := e.List(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	completed, err := e.List(context.Background(), domain.StatusCompleted, 1)
	require.NoError(t, err)
	assert.Len(t, completed, 1)
}

func TestEngineCumulativeImpact(t *testing.T) {
	near := []domain.Facility{
		{
			ID: "fac-001",
			Pollutants: []domain.Pollutant{
				{Name: "Ammonia", AmountKg: 30000},
				{Name: "Chlorine", AmountKg: 10000},
			},
		},
		{
			ID: "fac-002",
			Pollutants: []domain.Pollutant{
				{Name: "Ammonia", AmountKg: 5000},
			},
		},
	}
	e := newTestEngine(t, &stubFacilities{near: near}, nil, nil, nil)

	impact, err := e.CumulativeImpact(context.Background(), domain.Geo{Lat: 45, Lon: 10}, 10)
	require.NoError(t, err)

	assert.Equal(t, 2, impact.TotalFacilities)
	assert.Equal(t, 45000.0, impact.TotalEmissionsKg)
	assert.Equal(t, 2, impact.UniquePollutants)
	assert.ElementsMatch(t, []string{"Ammonia", "Chlorine"}, impact.PollutantTypes)
	assert.Equal(t, 45.0, impact.RiskScore)
	assert.Equal(t, "Moderate", impact.RiskLevel)
}

func TestEngineCumulativeImpactEmpty(t *testing.T) {
	e := newTestEngine(t, &stubFacilities{}, nil, nil, nil)

	impact, err := e.CumulativeImpact(context.Background(), domain.Geo{Lat: 45, Lon: 10}, 10)
	require.NoError(t, err)
	assert.Zero(t, impact.TotalFacilities)
	assert.Zero(t, impact.TotalEmissionsKg)
	assert.Equal(t, "Low", impact.RiskLevel)
}

func TestSlopeFactor(t *testing.T) {
	assert.Equal(t, 1.0, slopeFactor(0))
	assert.Equal(t, 1.0, slopeFactor(8))
	assert.Equal(t, 1.15, slopeFactor(8.1))
	assert.Equal(t, 1.15, slopeFactor(15))
	assert.Equal(t, 1.3, slopeFactor(16))
}
