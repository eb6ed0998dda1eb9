// Package engine orchestrates simulation tasks: it resolves facility,
// weather, and terrain context from providers (degrading gracefully when
// they are unavailable), dispatches the right calamity model, applies
// terrain corrections, persists task state through the lifecycle, and
// publishes completed risk profiles.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/industrisk/falloutsim/internal/domain"
	"github.com/industrisk/falloutsim/internal/model"
	"github.com/industrisk/falloutsim/internal/observability"
	"github.com/industrisk/falloutsim/internal/store"
)

// ErrSimulationCancelled marks a task that was cancelled by the caller.
var ErrSimulationCancelled = errors.New("simulation cancelled")

// ErrResultNotReady is returned when a risk profile is requested for a
// task that has not completed.
var ErrResultNotReady = errors.New("simulation result not ready")

// ErrTaskFinished is returned when cancelling a task that already reached
// a terminal state.
var ErrTaskFinished = errors.New("task already finished")

// Publisher delivers completed risk profiles to downstream consumers.
type Publisher interface {
	PublishRiskProfile(ctx context.Context, task domain.Task) error
}

// Options carries the simulation tunables from configuration.
type Options struct {
	MaxRadiusKm             float64
	ReleaseHeightM          float64
	InitialConcentrationPPM float64
	ProviderTimeout         time.Duration
}

// Engine runs simulations asynchronously. Submit returns immediately with
// a QUEUED task; a background goroutine moves it through PROCESSING to a
// terminal state. Facilities, weather, terrain, and publisher are all
// optional: a nil provider behaves like an unavailable one and triggers
// the documented fallback, a nil publisher disables publishing.
type Engine struct {
	store      store.TaskStore
	registry   *model.Registry
	facilities domain.FacilityProvider
	weather    domain.WeatherProvider
	terrain    domain.TerrainProvider
	publisher  Publisher
	logger     *slog.Logger
	metrics    *observability.Metrics
	opts       Options

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// New assembles an engine from its collaborators.
func New(
	st store.TaskStore,
	registry *model.Registry,
	facilities domain.FacilityProvider,
	weather domain.WeatherProvider,
	terrain domain.TerrainProvider,
	publisher Publisher,
	logger *slog.Logger,
	metrics *observability.Metrics,
	opts Options,
) *Engine {
	if opts.MaxRadiusKm <= 0 {
		opts.MaxRadiusKm = 50
	}
	if opts.ReleaseHeightM <= 0 {
		opts.ReleaseHeightM = 10
	}
	if opts.InitialConcentrationPPM <= 0 {
		opts.InitialConcentrationPPM = 100
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 5 * time.Second
	}
	return &Engine{
		store:      st,
		registry:   registry,
		facilities: facilities,
		weather:    weather,
		terrain:    terrain,
		publisher:  publisher,
		logger:     logger,
		metrics:    metrics,
		opts:       opts,
		cancels:    make(map[string]context.CancelFunc),
	}
}

// Submit accepts a simulation request, records it as QUEUED, and starts
// processing in the background. Validation failures surface on the task
// record, not here: the returned task is always accepted.
func (e *Engine) Submit(ctx context.Context, req domain.CalamityRequest) (domain.Task, error) {
	// Canonicalize recognized calamity types so the task record, metrics,
	// and engine label all carry the lowercase form.
	if c, err := domain.ParseCalamityType(req.CalamityType); err == nil {
		req.CalamityType = string(c)
	}

	now := domain.Now().UTC()
	task := domain.Task{
		ID:        newSimulationID(),
		SiteID:    req.SiteID,
		Calamity:  req.CalamityType,
		Magnitude: req.Magnitude,
		Unit:      req.Unit,
		Engine:    e.registry.EngineFor(domain.CalamityType(req.CalamityType)),
		Status:    domain.StatusQueued,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.store.Put(ctx, task); err != nil {
		return domain.Task{}, fmt.Errorf("store task: %w", err)
	}

	e.metrics.SimulationsSubmitted.WithLabelValues(req.CalamityType).Inc()
	e.logger.Info("simulation submitted",
		"simulation_id", task.ID,
		"site_id", req.SiteID,
		"calamity_type", req.CalamityType,
		"magnitude", req.Magnitude)

	runCtx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.cancels[task.ID] = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go e.run(runCtx, task.ID, req)

	return task, nil
}

// Status returns the current task record.
func (e *Engine) Status(ctx context.Context, id string) (domain.Task, error) {
	return e.store.Get(ctx, id)
}

// RiskProfile returns the completed task with its result, or
// ErrResultNotReady while the simulation is still in flight or failed.
func (e *Engine) RiskProfile(ctx context.Context, id string) (domain.Task, error) {
	task, err := e.store.Get(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if task.Status != domain.StatusCompleted {
		return domain.Task{}, fmt.Errorf("%w: task %s is %s", ErrResultNotReady, id, task.Status)
	}
	return task, nil
}

// List returns recent tasks, newest first.
func (e *Engine) List(ctx context.Context, status domain.TaskStatus, limit int) ([]domain.Task, error) {
	return e.store.List(ctx, status, limit)
}

// Cancel aborts a queued or processing simulation. The task transitions to
// FAILED with a cancellation message; terminal tasks are left untouched
// and reported as an error.
func (e *Engine) Cancel(ctx context.Context, id string) (domain.Task, error) {
	task, err := e.store.Get(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if task.Status.Terminal() {
		return domain.Task{}, fmt.Errorf("%w: task %s is %s", ErrTaskFinished, id, task.Status)
	}

	updated, err := e.store.Update(ctx, id, func(t *domain.Task) {
		if t.Status.Terminal() {
			return
		}
		t.Status = domain.StatusFailed
		t.Error = ErrSimulationCancelled.Error()
		t.UpdatedAt = domain.Now().UTC()
	})
	if err != nil {
		return domain.Task{}, err
	}

	e.mu.Lock()
	cancel, ok := e.cancels[id]
	e.mu.Unlock()
	if ok {
		cancel()
	}

	e.metrics.SimulationsFinished.WithLabelValues(task.Calamity, "cancelled").Inc()
	e.logger.Info("simulation cancelled", "simulation_id", id)
	return updated, nil
}

// CumulativeImpact aggregates the pollutant load of all facilities within
// radiusKm of a point into a 0-100 risk score.
func (e *Engine) CumulativeImpact(ctx context.Context, center domain.Geo, radiusKm float64) (domain.CumulativeImpact, error) {
	var facilities []domain.Facility
	if e.facilities != nil {
		var err error
		facilities, err = e.facilities.FacilitiesNear(ctx, center, radiusKm, 100)
		if err != nil {
			return domain.CumulativeImpact{}, fmt.Errorf("facilities near (%v, %v): %w", center.Lat, center.Lon, err)
		}
	}

	var totalKg float64
	seen := make(map[string]struct{})
	var types []string
	for _, f := range facilities {
		for _, p := range f.Pollutants {
			totalKg += p.AmountKg
			if _, ok := seen[p.Name]; !ok {
				seen[p.Name] = struct{}{}
				types = append(types, p.Name)
			}
		}
	}

	score := totalKg / 1000
	if score > 100 {
		score = 100
	}
	var level string
	switch {
	case score < 20:
		level = "Low"
	case score < 50:
		level = "Moderate"
	case score < 75:
		level = "High"
	default:
		level = "Critical"
	}

	return domain.CumulativeImpact{
		Location:         center,
		AnalysisRadiusKm: radiusKm,
		TotalFacilities:  len(facilities),
		TotalEmissionsKg: totalKg,
		UniquePollutants: len(types),
		PollutantTypes:   types,
		RiskScore:        float64(int(score*10)) / 10,
		RiskLevel:        level,
	}, nil
}

// Ping reports store health for readiness checks.
func (e *Engine) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}

// Shutdown waits for in-flight simulations to finish, or returns the
// context error if they do not drain in time.
func (e *Engine) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newSimulationID() string {
	return "sim_tox_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
