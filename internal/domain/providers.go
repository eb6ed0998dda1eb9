package domain

import (
	"context"
	"errors"
)

// ErrFacilityNotFound is returned by FacilityProvider when no facility
// matches the requested id. The orchestrator recovers it with a synthetic
// facility; it never fails a simulation.
var ErrFacilityNotFound = errors.New("facility not found")

// ErrTerrainUnavailable is returned by TerrainProvider when no sample
// exists at a location. Recovered with the documented defaults.
var ErrTerrainUnavailable = errors.New("terrain data unavailable")

// FacilityProvider resolves industrial facility records.
type FacilityProvider interface {
	// FacilityByID returns the facility with the given id, or
	// ErrFacilityNotFound.
	FacilityByID(ctx context.Context, id string) (Facility, error)

	// FacilitiesNear returns up to limit facilities within radiusKm of
	// center, nearest first.
	FacilitiesNear(ctx context.Context, center Geo, radiusKm float64, limit int) ([]Facility, error)
}

// WeatherProvider supplies current meteorological conditions.
type WeatherProvider interface {
	CurrentWeather(ctx context.Context, at Geo) (WeatherConditions, error)
}

// TerrainProvider supplies local terrain samples.
type TerrainProvider interface {
	Elevation(ctx context.Context, at Geo) (float64, error)
	Slope(ctx context.Context, at Geo) (float64, error)
}
