package model

import (
	"context"
	"fmt"
	"math"

	"github.com/industrisk/falloutsim/internal/domain"
)

// seismicMaxRadiusKm caps the exponential magnitude-radius curve, which
// would otherwise dominate any realistic footprint above magnitude ~2.
const seismicMaxRadiusKm = 50.0

// SeismicModel estimates earthquake impact on an industrial facility:
// shaking footprint, structural damage probability, and the pollutant
// release that damage implies.
type SeismicModel struct{}

func NewSeismicModel() *SeismicModel { return &SeismicModel{} }

func (m *SeismicModel) Engine() string { return EngineSeismic }

func (m *SeismicModel) Run(ctx context.Context, in Input) (*domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in.Magnitude <= 0 {
		return nil, fmt.Errorf("seismic: magnitude must be positive, got %v", in.Magnitude)
	}

	radiusKm := SeismicRadiusKm(in.Magnitude)
	damageProb, damageLevel := damageBand(in.Magnitude)

	// Damage releases a fixed fraction of whatever inventory the damage
	// probability exposes.
	releasedKg := in.Facility.TotalInventoryKg() * damageProb * 0.2

	fallout, err := FalloutGeometry(in.Facility.Geo, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("seismic: fallout geometry: %w", err)
	}

	areaKm2 := math.Pi * radiusKm * radiusKm
	metrics := domain.ImpactMetrics{
		EstPopulation:   int(areaKm2 * populationDensityPerKm2),
		AffectedAreaKm2: round2(areaKm2),
		PrimaryToxins:   in.Facility.PrimaryToxins(),
		HealthRisks:     seismicRisks(in.Magnitude),
	}

	return &domain.Result{
		SimulationType:       domain.CalamityEarthquake,
		Engine:               m.Engine(),
		Magnitude:            in.Magnitude,
		CriticalRadiusKm:     round2(radiusKm),
		Fallout:              fallout,
		DamageLevel:          damageLevel,
		DamageProbability:    damageProb,
		ReleasedPollutantsKg: round2(releasedKg),
		Metrics:              metrics,
		AreaShape:            math.Pi,
		Timestamp:            domain.Now().UTC(),
	}, nil
}

// SeismicRadiusKm grows the shaking footprint exponentially with Richter
// magnitude, capped at seismicMaxRadiusKm.
func SeismicRadiusKm(magnitude float64) float64 {
	return math.Min(10*math.Pow(10, magnitude/3), seismicMaxRadiusKm)
}

// damageBand maps Richter magnitude to a structural damage probability and
// qualitative level.
func damageBand(magnitude float64) (float64, string) {
	switch {
	case magnitude < 5.0:
		return 0.1, "Minor"
	case magnitude < 6.0:
		return 0.3, "Moderate"
	case magnitude < 7.0:
		return 0.6, "Severe"
	default:
		return 0.9, "Critical"
	}
}

// seismicRisks lists the hazards an earthquake of this magnitude poses at
// an industrial site. Collapse risk always applies.
func seismicRisks(magnitude float64) []string {
	risks := []string{"Structural collapse risk"}
	if magnitude > 5.5 {
		risks = append(risks, "Hazardous material release")
	}
	if magnitude > 6.0 {
		risks = append(risks, "Secondary fires", "Water contamination")
	}
	return risks
}
