package engine

import (
	"math"

	"github.com/industrisk/falloutsim/internal/domain"
)

// slopeFactor maps terrain steepness to a radius multiplier. Steep ground
// accelerates runoff and channels dispersion, extending the footprint.
func slopeFactor(slopeDeg float64) float64 {
	switch {
	case slopeDeg > 15:
		return 1.3
	case slopeDeg > 8:
		return 1.15
	default:
		return 1.0
	}
}

// applyTerrainCorrection stretches a result's critical radius by the slope
// factor and recomputes the dependent area and population figures using
// the originating model's own area shape.
func applyTerrainCorrection(r *domain.Result, slopeDeg float64) {
	factor := slopeFactor(slopeDeg)
	r.TerrainSlopeFactor = factor
	if factor == 1.0 {
		return
	}

	r.CriticalRadiusKm = round2(r.CriticalRadiusKm * factor)

	shape := r.AreaShape
	if shape <= 0 {
		shape = math.Pi
	}
	area := shape * r.CriticalRadiusKm * r.CriticalRadiusKm
	r.Metrics.AffectedAreaKm2 = round2(area)
	r.Metrics.EstPopulation = int(area * 500)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
