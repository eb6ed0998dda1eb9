package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/industrisk/falloutsim/internal/domain"
	"github.com/industrisk/falloutsim/internal/model"
)

// Progress checkpoints. Percentages are coarse stage markers in a fixed
// order, not a completion ratio.
const (
	stageFacility = 10
	stageContext  = 40
	stageModel    = 80
	stageDone     = 100

	stepFacility = "Loading facility data"
	stepContext  = "Resolving weather and terrain"
	stepModel    = "Running simulation model"
	stepDone     = "Completed"
)

func (e *Engine) run(ctx context.Context, id string, req domain.CalamityRequest) {
	defer e.wg.Done()
	defer func() {
		e.mu.Lock()
		delete(e.cancels, id)
		e.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("simulation panicked", "simulation_id", id, "panic", r)
			e.fail(id, req.CalamityType, fmt.Sprintf("internal error: %v", r), false)
		}
	}()

	started := time.Now()
	e.metrics.ActiveSimulations.Inc()
	defer e.metrics.ActiveSimulations.Dec()

	// Input validation happens on the task record: a request that never
	// could run fails with progress reset to zero.
	calamity, err := domain.ParseCalamityType(req.CalamityType)
	if err != nil {
		e.failInput(id, req.CalamityType, err.Error())
		return
	}
	mdl, err := e.registry.Lookup(calamity)
	if err != nil {
		e.failInput(id, req.CalamityType, err.Error())
		return
	}
	if req.Magnitude <= 0 {
		e.failInput(id, req.CalamityType, fmt.Sprintf("magnitude must be positive, got %v", req.Magnitude))
		return
	}

	if !e.setStage(id, stageFacility, stepFacility) {
		return
	}
	facility := e.resolveFacility(ctx, req.SiteID)

	if ctx.Err() != nil {
		e.cancelled(id, req.CalamityType)
		return
	}
	if !e.setStage(id, stageContext, stepContext) {
		return
	}
	weather := e.resolveWeather(ctx, facility.Geo, req.Meteorology)
	terrain := e.resolveTerrain(ctx, facility.Geo)

	if ctx.Err() != nil {
		e.cancelled(id, req.CalamityType)
		return
	}
	if !e.setStage(id, stageModel, stepModel) {
		return
	}

	result, err := mdl.Run(ctx, model.Input{
		Facility:                facility,
		Weather:                 weather,
		Terrain:                 terrain,
		Magnitude:               req.Magnitude,
		Unit:                    req.Unit,
		InitialConcentrationPPM: e.opts.InitialConcentrationPPM,
		ReleaseHeightM:          e.opts.ReleaseHeightM,
		MaxRadiusKm:             e.opts.MaxRadiusKm,
	})
	if err != nil {
		if ctx.Err() != nil {
			e.cancelled(id, req.CalamityType)
			return
		}
		e.fail(id, req.CalamityType, err.Error(), false)
		return
	}

	applyTerrainCorrection(result, terrain.SlopeDeg)
	result.Facility = &domain.FacilityContext{
		ID:         facility.ID,
		Name:       facility.Name,
		Location:   facility.Geo,
		ElevationM: terrain.ElevationM,
		SlopeDeg:   terrain.SlopeDeg,
	}
	result.Weather = &weather

	task, err := e.store.Update(context.Background(), id, func(t *domain.Task) {
		if t.Status.Terminal() {
			return
		}
		t.Status = domain.StatusCompleted
		t.Progress = stageDone
		t.CurrentStep = stepDone
		t.Result = result
		t.UpdatedAt = domain.Now().UTC()
	})
	if err != nil {
		e.logger.Error("failed to persist result", "simulation_id", id, "error", err)
		return
	}
	if task.Status != domain.StatusCompleted {
		// A concurrent cancellation won the race.
		return
	}

	e.metrics.SimulationsFinished.WithLabelValues(req.CalamityType, "completed").Inc()
	e.metrics.SimulationDuration.WithLabelValues(req.CalamityType).Observe(time.Since(started).Seconds())
	e.logger.Info("simulation completed",
		"simulation_id", id,
		"calamity_type", req.CalamityType,
		"critical_radius_km", result.CriticalRadiusKm,
		"duration", time.Since(started))

	e.publish(task)
}

// setStage advances a live task to the next checkpoint. Returns false when
// the task has already reached a terminal state, which stops the run.
func (e *Engine) setStage(id string, progress int, step string) bool {
	task, err := e.store.Update(context.Background(), id, func(t *domain.Task) {
		if t.Status.Terminal() {
			return
		}
		t.Status = domain.StatusProcessing
		t.Progress = progress
		t.CurrentStep = step
		t.UpdatedAt = domain.Now().UTC()
	})
	if err != nil {
		e.logger.Error("failed to update task stage", "simulation_id", id, "error", err)
		return false
	}
	return !task.Status.Terminal()
}

// failInput marks a task failed before any work started, resetting
// progress to zero.
func (e *Engine) failInput(id, calamity, msg string) {
	e.fail(id, calamity, msg, true)
}

func (e *Engine) fail(id, calamity, msg string, resetProgress bool) {
	_, err := e.store.Update(context.Background(), id, func(t *domain.Task) {
		if t.Status.Terminal() {
			return
		}
		t.Status = domain.StatusFailed
		t.Error = msg
		if resetProgress {
			t.Progress = 0
		}
		t.UpdatedAt = domain.Now().UTC()
	})
	if err != nil {
		e.logger.Error("failed to mark task failed", "simulation_id", id, "error", err)
		return
	}
	e.metrics.SimulationsFinished.WithLabelValues(calamity, "failed").Inc()
	e.logger.Warn("simulation failed", "simulation_id", id, "error", msg)
}

// cancelled finalizes a task whose context was cancelled mid-run. The
// Cancel method usually marked it already; this covers the store record
// in case the run noticed first.
func (e *Engine) cancelled(id, calamity string) {
	_, err := e.store.Update(context.Background(), id, func(t *domain.Task) {
		if t.Status.Terminal() {
			return
		}
		t.Status = domain.StatusFailed
		t.Error = ErrSimulationCancelled.Error()
		t.UpdatedAt = domain.Now().UTC()
	})
	if err != nil {
		e.logger.Error("failed to mark task cancelled", "simulation_id", id, "error", err)
	}
}

// resolveFacility looks up the requested site, substituting a synthetic
// facility when the provider is missing, errors, or has no record.
func (e *Engine) resolveFacility(ctx context.Context, siteID string) domain.Facility {
	if e.facilities == nil {
		e.metrics.ProviderFallbacks.WithLabelValues("facility").Inc()
		return domain.SyntheticFacility(siteID)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, e.opts.ProviderTimeout)
	defer cancel()

	started := time.Now()
	f, err := e.facilities.FacilityByID(lookupCtx, siteID)
	e.metrics.ProviderDuration.WithLabelValues("facility").Observe(time.Since(started).Seconds())
	if err != nil {
		e.logger.Warn("facility lookup failed, using synthetic facility", "site_id", siteID, "error", err)
		e.metrics.ProviderFallbacks.WithLabelValues("facility").Inc()
		return domain.SyntheticFacility(siteID)
	}
	return f
}

// resolveWeather fetches current conditions, falls back to the synthetic
// placeholder on failure, layers any caller override on top, and derives a
// stability class when none is set.
func (e *Engine) resolveWeather(ctx context.Context, at domain.Geo, override *domain.WeatherOverride) domain.WeatherConditions {
	var conditions domain.WeatherConditions

	if e.weather == nil {
		e.metrics.ProviderFallbacks.WithLabelValues("weather").Inc()
		conditions = domain.SyntheticWeather(at)
	} else {
		lookupCtx, cancel := context.WithTimeout(ctx, e.opts.ProviderTimeout)
		defer cancel()

		started := time.Now()
		fetched, err := e.weather.CurrentWeather(lookupCtx, at)
		e.metrics.ProviderDuration.WithLabelValues("weather").Observe(time.Since(started).Seconds())
		if err != nil {
			e.logger.Warn("weather lookup failed, using synthetic conditions", "error", err)
			e.metrics.ProviderFallbacks.WithLabelValues("weather").Inc()
			conditions = domain.SyntheticWeather(at)
		} else {
			conditions = fetched
		}
	}

	conditions = conditions.Merge(override)
	if !conditions.Stability.Valid() {
		conditions.Stability = domain.DeriveStability(conditions.WindSpeedMS, conditions.Timestamp)
	}
	return conditions
}

// resolveTerrain fetches elevation and slope, substituting the documented
// defaults per value on failure.
func (e *Engine) resolveTerrain(ctx context.Context, at domain.Geo) domain.TerrainSample {
	if e.terrain == nil {
		e.metrics.ProviderFallbacks.WithLabelValues("terrain").Inc()
		return domain.DefaultTerrain()
	}

	lookupCtx, cancel := context.WithTimeout(ctx, e.opts.ProviderTimeout)
	defer cancel()

	sample := domain.TerrainSample{Source: "observed"}
	started := time.Now()
	elevation, err := e.terrain.Elevation(lookupCtx, at)
	if err != nil {
		e.logger.Warn("elevation lookup failed, using default", "error", err)
		e.metrics.ProviderFallbacks.WithLabelValues("terrain").Inc()
		sample.ElevationM = domain.DefaultElevationM
		sample.Source = "default"
	} else {
		sample.ElevationM = elevation
	}

	slope, err := e.terrain.Slope(lookupCtx, at)
	if err != nil {
		e.logger.Warn("slope lookup failed, using default", "error", err)
		e.metrics.ProviderFallbacks.WithLabelValues("terrain").Inc()
		sample.SlopeDeg = domain.DefaultSlopeDeg
		sample.Source = "default"
	} else {
		sample.SlopeDeg = slope
	}
	e.metrics.ProviderDuration.WithLabelValues("terrain").Observe(time.Since(started).Seconds())

	return sample
}

// publish sends a completed risk profile downstream, best effort. Publish
// failures are counted and logged but never affect task state.
func (e *Engine) publish(task domain.Task) {
	if e.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.publisher.PublishRiskProfile(ctx, task); err != nil {
		e.metrics.PublishErrors.Inc()
		e.logger.Error("failed to publish risk profile", "simulation_id", task.ID, "error", err)
		return
	}
	e.metrics.RiskProfilesPublished.Inc()
}
