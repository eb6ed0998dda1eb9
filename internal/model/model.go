// Package model implements the physical calamity models: Gaussian plume
// dispersion for fires and explosions, surface-flow pollutant transport for
// floods, and empirical magnitude scaling for earthquakes. Models are pure
// computations over a resolved Input; provider lookups, persistence, and
// progress tracking live in the orchestrator.
package model

import (
	"context"
	"fmt"

	"github.com/industrisk/falloutsim/internal/domain"
)

// Engine labels identify which model produced a result.
const (
	EngineHydrological = "Hydrological_Flow_V1"
	EngineDispersion   = "Atmospheric_Dispersion_V1"
	EngineBlast        = "Blast_Radius_V1"
	EngineSeismic      = "Seismic_Impact_V1"
	EngineGeneric      = "Generic_Simulation_V1"
)

// ErrUnsupportedCalamity is returned by Registry.Lookup for a calamity type
// with no registered model.
var ErrUnsupportedCalamity = fmt.Errorf("unsupported calamity type")

// Input is the fully resolved context a model runs against. The
// orchestrator fills it from providers (or their fallbacks) before
// dispatching; models never perform lookups themselves.
type Input struct {
	Facility  domain.Facility
	Weather   domain.WeatherConditions
	Terrain   domain.TerrainSample
	Magnitude float64
	Unit      string

	// Tunables from configuration.
	InitialConcentrationPPM float64
	ReleaseHeightM          float64
	MaxRadiusKm             float64
}

// CalamityModel computes a risk profile for one calamity type.
type CalamityModel interface {
	// Engine returns the label stamped on results this model produces.
	Engine() string

	// Run executes the model. It must honor ctx cancellation and return
	// a fully populated result including fallout geometry.
	Run(ctx context.Context, in Input) (*domain.Result, error)
}

// Registry maps calamity types to their models.
type Registry struct {
	models map[domain.CalamityType]CalamityModel
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[domain.CalamityType]CalamityModel)}
}

// Register binds a model to a calamity type, replacing any previous binding.
func (r *Registry) Register(t domain.CalamityType, m CalamityModel) {
	r.models[t] = m
}

// Lookup returns the model for t, or ErrUnsupportedCalamity.
func (r *Registry) Lookup(t domain.CalamityType) (CalamityModel, error) {
	m, ok := r.models[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCalamity, t)
	}
	return m, nil
}

// EngineFor returns the engine label for t, or EngineGeneric when no model
// is registered. Used to stamp tasks at submission time, before the model
// runs.
func (r *Registry) EngineFor(t domain.CalamityType) string {
	if m, ok := r.models[t]; ok {
		return m.Engine()
	}
	return EngineGeneric
}

// DefaultRegistry returns a registry with all four calamity models bound.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(domain.CalamityFlood, NewFloodModel())
	r.Register(domain.CalamityFire, NewDispersionModel(domain.CalamityFire))
	r.Register(domain.CalamityExplosion, NewDispersionModel(domain.CalamityExplosion))
	r.Register(domain.CalamityEarthquake, NewSeismicModel())
	return r
}
