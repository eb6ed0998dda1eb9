package model

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/industrisk/falloutsim/internal/domain"
)

// sigmaCoeff holds Pasquill-Gifford horizontal and vertical dispersion
// coefficients for one stability class.
type sigmaCoeff struct {
	y, z float64
}

var stabilityCoeffs = map[domain.StabilityClass]sigmaCoeff{
	domain.StabilityA: {0.22, 0.20},
	domain.StabilityB: {0.16, 0.12},
	domain.StabilityC: {0.11, 0.08},
	domain.StabilityD: {0.08, 0.06},
	domain.StabilityE: {0.06, 0.03},
	domain.StabilityF: {0.04, 0.016},
}

// blastK is the cube-root scaling constant for the 5 psi overpressure
// contour, in meters per kg^(1/3).
const blastK = 18.0

// DispersionModel runs the Gaussian plume model for airborne releases.
// Fires are treated as slow continuous burns with buoyant plume rise;
// explosions as rapid releases with a mushroom-cloud height boost plus a
// TNT-equivalent blast radius floor.
type DispersionModel struct {
	calamity domain.CalamityType
}

// NewDispersionModel returns a plume model for fire or explosion.
func NewDispersionModel(t domain.CalamityType) *DispersionModel {
	return &DispersionModel{calamity: t}
}

func (m *DispersionModel) Engine() string {
	if m.calamity == domain.CalamityExplosion {
		return EngineBlast
	}
	return EngineDispersion
}

func (m *DispersionModel) Run(ctx context.Context, in Input) (*domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in.Magnitude <= 0 {
		return nil, fmt.Errorf("dispersion: magnitude must be positive, got %v", in.Magnitude)
	}

	var (
		emissionRate  float64 // kg/s
		durationHours float64
		effHeight     float64
		plumeWidth    float64
		blastRadiusKm float64
	)
	releaseHeight := in.ReleaseHeightM

	switch m.calamity {
	case domain.CalamityFire:
		emissionRate = in.Magnitude * 0.5
		durationHours = 4
		effHeight = releaseHeight + 50 // buoyant plume rise
		plumeWidth = 0.3
	case domain.CalamityExplosion:
		emissionRate = in.Magnitude * 0.1
		durationHours = 0.5
		effHeight = releaseHeight + 100 // mushroom cloud
		plumeWidth = 0.5
		blastRadiusKm = BlastRadiusKm(in.Magnitude)
	default:
		return nil, fmt.Errorf("dispersion: unsupported calamity %q", m.calamity)
	}

	wind := math.Max(in.Weather.WindSpeedMS, 0.5)
	stability := in.Weather.Stability
	if !stability.Valid() {
		stability = domain.DefaultStability
	}

	maxDistanceKm := maxImpactDistanceKm(emissionRate, wind, stability, effHeight, m.calamity == domain.CalamityExplosion)
	if m.calamity == domain.CalamityExplosion {
		maxDistanceKm = math.Max(maxDistanceKm, blastRadiusKm)
	}

	distances := sampleDistances(maxDistanceKm)
	points := make([]domain.ConcentrationPoint, 0, len(distances))
	values := make([]float64, 0, len(distances))
	for _, d := range distances {
		c := plumeConcentration(emissionRate, d*1000, wind, stability, effHeight, 0)
		points = append(points, domain.ConcentrationPoint{
			DistanceKm:    round2(d),
			Concentration: round4(c),
			DoseMg:        round4(InhaledDoseMg(c, durationHours, 1.0)),
		})
		values = append(values, c)
	}

	fallout, err := FalloutGeometry(in.Facility.Geo, maxDistanceKm)
	if err != nil {
		return nil, fmt.Errorf("dispersion: fallout geometry: %w", err)
	}

	areaKm2 := maxDistanceKm * maxDistanceKm * plumeWidth
	avg := stat.Mean(values, nil)

	weather := in.Weather
	weather.WindSpeedMS = wind
	weather.Stability = stability

	return &domain.Result{
		SimulationType:    m.calamity,
		Engine:            m.Engine(),
		Magnitude:         in.Magnitude,
		CriticalRadiusKm:  round2(maxDistanceKm),
		Fallout:           fallout,
		Concentrations:    points,
		ConcentrationUnit: "mg/m3",
		EmissionRateKgS:   emissionRate,
		DurationHours:     durationHours,
		TotalReleaseKg:    emissionRate * durationHours * 3600,
		EffectiveHeightM:  effHeight,
		BlastRadiusKm:     round2(blastRadiusKm),
		Metrics:           footprintMetrics(areaKm2, avg, in.Facility),
		AreaShape:         plumeWidth,
		Timestamp:         domain.Now().UTC(),
	}, nil
}

// BlastRadiusKm converts a TNT-equivalent mass to the 5 psi moderate-damage
// radius via cube-root scaling, floored at 0.1 km.
func BlastRadiusKm(tntEquivalentKg float64) float64 {
	radiusKm := blastK * math.Cbrt(tntEquivalentKg) / 1000
	return math.Max(0.1, radiusKm)
}

// InhaledDoseMg estimates the dose a receptor inhales at a steady air
// concentration over the exposure window.
func InhaledDoseMg(concentrationMgM3, exposureHours, breathingRateM3H float64) float64 {
	return concentrationMgM3 * exposureHours * breathingRateM3H
}

// plumeConcentration evaluates the ground-reflected Gaussian plume equation
// at the plume centerline, returning mg/m³. Distances at or behind the
// source collapse to the concentration of a 10 m source sphere.
func plumeConcentration(emissionRateKgS, distanceM, windMS float64, stability domain.StabilityClass, releaseHeightM, receptorHeightM float64) float64 {
	if distanceM <= 0 {
		return emissionRateKgS * 1e6 / (4.0 / 3.0 * math.Pi * 1e3)
	}

	coeff, ok := stabilityCoeffs[stability]
	if !ok {
		coeff = stabilityCoeffs[domain.DefaultStability]
	}

	var sigmaY, sigmaZ float64
	if distanceM < 1000 {
		sigmaY = coeff.y * math.Pow(distanceM, 0.894)
		sigmaZ = coeff.z * math.Pow(distanceM, 0.894)
	} else {
		// Beyond 1 km the power law overestimates growth; switch to a
		// square-root tail anchored at the 1 km value.
		sigmaY = coeff.y * math.Pow(1000, 0.894) * math.Sqrt(distanceM/1000)
		sigmaZ = coeff.z * math.Pow(1000, 0.894) * math.Sqrt(distanceM/1000)
	}
	sigmaY = math.Max(sigmaY, 1.0)
	sigmaZ = math.Max(sigmaZ, 1.0)

	q := emissionRateKgS * 1e6 // kg/s to mg/s
	u := math.Max(windMS, 0.5)
	h := releaseHeightM
	z := receptorHeightM

	vertical := math.Exp(-0.5*math.Pow((z-h)/sigmaZ, 2)) +
		math.Exp(-0.5*math.Pow((z+h)/sigmaZ, 2))

	c := q / (2 * math.Pi * u * sigmaY * sigmaZ) * vertical
	return math.Max(0, c)
}

// maxImpactDistanceKm sweeps a logarithmic distance grid from 100 m outward
// and returns the farthest distance where concentration still meets the
// threshold. Both the search ceiling and the threshold scale with emission
// rate so large releases do not report trivially small radii.
func maxImpactDistanceKm(emissionRateKgS, windMS float64, stability domain.StabilityClass, releaseHeightM float64, explosion bool) float64 {
	threshold := 1.0
	if explosion {
		threshold = 10.0
	}

	var maxSearchKm float64
	switch {
	case emissionRateKgS > 100:
		maxSearchKm = 50
		threshold = math.Max(threshold, 10.0)
	case emissionRateKgS > 50:
		maxSearchKm = 40
		threshold = math.Max(threshold, 5.0)
	case emissionRateKgS > 10:
		maxSearchKm = 30
		threshold = math.Max(threshold, 2.0)
	default:
		maxSearchKm = 20
	}

	// Calm air barely advects the plume, extending the footprint.
	if windMS < 2.0 {
		maxSearchKm *= 1.5
	}

	grid := floats.LogSpan(make([]float64, 100), 100, maxSearchKm*1000)

	lastValidKm := 0.5 // minimum credible radius
	for _, distM := range grid {
		c := plumeConcentration(emissionRateKgS, distM, windMS, stability, releaseHeightM, 0)
		if c >= threshold {
			lastValidKm = distM / 1000
		} else {
			return lastValidKm
		}
	}
	return math.Max(lastValidKm, maxSearchKm*0.5)
}

// sampleDistances picks the concentration table rows: the canonical
// distances that fall inside the footprint, or five radius fractions when
// the footprint is too small to cover at least three of them.
func sampleDistances(maxDistanceKm float64) []float64 {
	canonical := []float64{0.5, 1, 2, 5, 10, 15, 20}

	var inside []float64
	for _, d := range canonical {
		if d <= maxDistanceKm {
			inside = append(inside, d)
		}
	}
	if len(inside) >= 3 {
		return inside
	}

	fractions := []float64{0.1, 0.3, 0.5, 0.7, 1.0}
	out := make([]float64, len(fractions))
	for i, f := range fractions {
		out[i] = maxDistanceKm * f
	}
	return out
}

// footprintMetrics derives population and land-use impact from an affected
// area and its mean contamination level.
func footprintMetrics(areaKm2, avgConcentration float64, f domain.Facility) domain.ImpactMetrics {
	return domain.ImpactMetrics{
		EstPopulation:   int(areaKm2 * populationDensityPerKm2),
		AffectedAreaKm2: round2(areaKm2),
		AgriLandAcres:   round1(areaKm2 * agriLandFraction * acresPerKm2),
		AvgToxicityPPM:  round2(avgConcentration),
		PrimaryToxins:   f.PrimaryToxins(),
		HealthRisks:     healthRisks(avgConcentration),
	}
}

// healthRisks maps a mean contamination level onto advisory strings. Tiers
// stack: a level above 50 carries every lower tier's risks as well.
func healthRisks(avgConcentration float64) []string {
	var risks []string
	if avgConcentration > 50 {
		risks = append(risks, "Severe contamination risk", "Groundwater contamination")
	}
	if avgConcentration > 20 {
		risks = append(risks, "Neurological issues", "Soil contamination")
	}
	if avgConcentration > 10 {
		risks = append(risks, "Respiratory stress")
	}
	if len(risks) == 0 {
		risks = append(risks, "Low contamination risk")
	}
	return risks
}

const (
	populationDensityPerKm2 = 500
	agriLandFraction        = 0.4
	acresPerKm2             = 247.105
)

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
