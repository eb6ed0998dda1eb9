package domain

import "time"

// StabilityClass is a Pasquill-Gifford atmospheric stability letter, A-F.
type StabilityClass string

const (
	StabilityA StabilityClass = "A" // very unstable
	StabilityB StabilityClass = "B" // moderately unstable
	StabilityC StabilityClass = "C" // slightly unstable
	StabilityD StabilityClass = "D" // neutral
	StabilityE StabilityClass = "E" // slightly stable
	StabilityF StabilityClass = "F" // moderately stable
)

// DefaultStability is the neutral class used when no class can be determined.
const DefaultStability = StabilityD

// Valid reports whether s is one of the six defined classes.
func (s StabilityClass) Valid() bool {
	switch s {
	case StabilityA, StabilityB, StabilityC, StabilityD, StabilityE, StabilityF:
		return true
	}
	return false
}

// DeriveStability classifies atmospheric stability from wind speed and time
// of day. Daytime (06:00-18:00 UTC) surface heating destabilizes the
// boundary layer; calm nights stabilize it. Winds of 5 m/s and above are
// always neutral.
func DeriveStability(windSpeedMS float64, t time.Time) StabilityClass {
	isDay := t.UTC().Hour() >= 6 && t.UTC().Hour() < 18

	switch {
	case windSpeedMS < 2:
		if isDay {
			return StabilityA
		}
		return StabilityF
	case windSpeedMS < 3:
		if isDay {
			return StabilityB
		}
		return StabilityE
	case windSpeedMS < 5:
		if isDay {
			return StabilityC
		}
		return StabilityD
	default:
		return StabilityD
	}
}

// WeatherConditions describes the meteorological context of a simulation.
type WeatherConditions struct {
	Timestamp            time.Time      `json:"timestamp,omitempty"`
	WindSpeedMS          float64        `json:"wind_speed_ms"`
	WindDirectionDeg     float64        `json:"wind_direction_deg"`
	TemperatureC         float64        `json:"temperature_c"`
	PressureHPa          float64        `json:"pressure_hpa"`
	BoundaryLayerHeightM float64        `json:"boundary_layer_height_m"`
	Stability            StabilityClass `json:"stability_class,omitempty"`

	// Source is "observed" for provider data, "synthetic" for the
	// degraded-mode placeholder.
	Source string `json:"source,omitempty"`
}

// WeatherOverride carries caller-supplied weather fields layered on top of
// provider conditions. Nil fields are absent and ignored; a pointer to a
// zero value is an explicit override and applies.
type WeatherOverride struct {
	WindSpeedMS          *float64        `json:"wind_speed_ms,omitempty"`
	WindDirectionDeg     *float64        `json:"wind_direction_deg,omitempty"`
	TemperatureC         *float64        `json:"temperature_c,omitempty"`
	PressureHPa          *float64        `json:"pressure_hpa,omitempty"`
	BoundaryLayerHeightM *float64        `json:"boundary_layer_height_m,omitempty"`
	Stability            *StabilityClass `json:"stability_class,omitempty"`
}

// Empty reports whether the override carries no fields at all.
func (o *WeatherOverride) Empty() bool {
	if o == nil {
		return true
	}
	return o.WindSpeedMS == nil && o.WindDirectionDeg == nil &&
		o.TemperatureC == nil && o.PressureHPa == nil &&
		o.BoundaryLayerHeightM == nil && o.Stability == nil
}

// Merge returns a copy of w with all non-nil override fields applied.
// An invalid stability override is ignored rather than propagated.
func (w WeatherConditions) Merge(o *WeatherOverride) WeatherConditions {
	if o.Empty() {
		return w
	}
	if o.WindSpeedMS != nil {
		w.WindSpeedMS = *o.WindSpeedMS
	}
	if o.WindDirectionDeg != nil {
		w.WindDirectionDeg = *o.WindDirectionDeg
	}
	if o.TemperatureC != nil {
		w.TemperatureC = *o.TemperatureC
	}
	if o.PressureHPa != nil {
		w.PressureHPa = *o.PressureHPa
	}
	if o.BoundaryLayerHeightM != nil {
		w.BoundaryLayerHeightM = *o.BoundaryLayerHeightM
	}
	if o.Stability != nil && o.Stability.Valid() {
		w.Stability = *o.Stability
	}
	return w
}

// SyntheticWeather is the deterministic degraded-mode placeholder used when
// the weather provider is unreachable. Temperature follows a simple
// latitude gradient; the remaining fields are mid-latitude climatology.
func SyntheticWeather(at Geo) WeatherConditions {
	return WeatherConditions{
		Timestamp:            clock.Now().UTC(),
		WindSpeedMS:          3.0,
		WindDirectionDeg:     0,
		TemperatureC:         15.0 + (at.Lat-40)*0.5,
		PressureHPa:          1013.25,
		BoundaryLayerHeightM: 1000,
		Source:               "synthetic",
	}
}
