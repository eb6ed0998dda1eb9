package domain

import (
	"time"

	"github.com/ctessum/geom/encoding/geojson"
)

// ConcentrationPoint is one sampled entry of a concentration-vs-distance
// table. Unit depends on the model: mg/m³ for dispersion, ppm for flood.
type ConcentrationPoint struct {
	DistanceKm    float64 `json:"distance_km"`
	Concentration float64 `json:"concentration"`

	// DoseMg is the inhaled dose over the event duration at a nominal
	// 1 m³/h breathing rate. Dispersion results only.
	DoseMg float64 `json:"dose_mg,omitempty"`
}

// ImpactMetrics quantifies who and what a disaster footprint affects.
type ImpactMetrics struct {
	EstPopulation   int      `json:"est_population"`
	AffectedAreaKm2 float64  `json:"affected_area_km2"`
	AgriLandAcres   float64  `json:"agri_land_acres,omitempty"`
	AvgToxicityPPM  float64  `json:"avg_toxicity_ppm,omitempty"`
	PrimaryToxins   []string `json:"primary_toxins,omitempty"`
	HealthRisks     []string `json:"health_risks,omitempty"`
}

// FlowPath is one synthesized surface-flow trace from the facility outward.
// Coordinates are [longitude, latitude] pairs.
type FlowPath struct {
	Direction          int         `json:"direction"`
	Coordinates        [][]float64 `json:"coordinates"`
	LengthKm           float64     `json:"length_km"`
	PollutantRetention float64     `json:"pollutant_retention"`
}

// WatershedAssessment is a deterministic estimate of the watershed a flood
// drains through, derived from the flood footprint and local slope.
type WatershedAssessment struct {
	AreaKm2        float64 `json:"watershed_area_km2"`
	StreamOrder    int     `json:"stream_order"`
	StreamLengthKm float64 `json:"total_stream_length_km"`
	RunoffVolumeM3 float64 `json:"runoff_volume_m3"`
}

// FacilityContext is the resolved facility and terrain context attached to
// a completed result.
type FacilityContext struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Location   Geo     `json:"location"`
	ElevationM float64 `json:"elevation_m"`
	SlopeDeg   float64 `json:"slope_deg"`
}

// Result is the immutable outcome of a completed simulation.
type Result struct {
	SimulationType CalamityType `json:"simulation_type"`
	Engine         string       `json:"engine,omitempty"`
	Magnitude      float64      `json:"magnitude"`

	CriticalRadiusKm float64           `json:"critical_radius_km"`
	Metrics          ImpactMetrics     `json:"affected_metrics"`
	Fallout          *geojson.Geometry `json:"fallout_geometry"`

	Concentrations    []ConcentrationPoint `json:"concentrations,omitempty"`
	ConcentrationUnit string               `json:"concentration_unit,omitempty"`

	// Dispersion (fire/explosion) fields.
	EmissionRateKgS  float64 `json:"emission_rate_kg_s,omitempty"`
	DurationHours    float64 `json:"duration_hours,omitempty"`
	TotalReleaseKg   float64 `json:"total_release_kg,omitempty"`
	EffectiveHeightM float64 `json:"effective_release_height_m,omitempty"`
	BlastRadiusKm    float64 `json:"blast_radius_km,omitempty"`

	// Seismic fields.
	DamageLevel          string  `json:"damage_level,omitempty"`
	DamageProbability    float64 `json:"damage_probability,omitempty"`
	ReleasedPollutantsKg float64 `json:"released_pollutants_kg,omitempty"`

	// Flood fields.
	FlowPaths []FlowPath           `json:"flow_paths,omitempty"`
	Watershed *WatershedAssessment `json:"watershed,omitempty"`

	// Context attached by the orchestrator.
	Facility           *FacilityContext   `json:"facility_info,omitempty"`
	Weather            *WeatherConditions `json:"meteorological_conditions,omitempty"`
	TerrainSlopeFactor float64            `json:"terrain_slope_factor,omitempty"`

	// areaShape relates the critical radius to the affected area
	// (area = areaShape · r²): π for circular footprints, the plume width
	// factor for dispersion. Used by the terrain corrector to recompute
	// area with the originating model's own constant.
	AreaShape float64 `json:"-"`

	Timestamp time.Time `json:"timestamp"`
}
