package domain

// Defaults substituted when terrain data is unavailable at a location.
const (
	DefaultElevationM = 100.0
	DefaultSlopeDeg   = 5.0
)

// TerrainSample is the local terrain context at a facility.
type TerrainSample struct {
	ElevationM float64 `json:"elevation_m"`
	SlopeDeg   float64 `json:"slope_deg"`

	// Source is "observed" for provider data, "default" when either value
	// fell back to the documented defaults.
	Source string `json:"source,omitempty"`
}

// DefaultTerrain returns the fallback sample used when the terrain provider
// is unavailable.
func DefaultTerrain() TerrainSample {
	return TerrainSample{
		ElevationM: DefaultElevationM,
		SlopeDeg:   DefaultSlopeDeg,
		Source:     "default",
	}
}
