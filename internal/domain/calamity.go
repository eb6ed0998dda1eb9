package domain

import (
	"fmt"
	"strings"
)

// CalamityType identifies which disaster model a simulation runs.
type CalamityType string

const (
	CalamityFlood      CalamityType = "flood"
	CalamityFire       CalamityType = "fire"
	CalamityExplosion  CalamityType = "explosion"
	CalamityEarthquake CalamityType = "earthquake"
)

// ParseCalamityType validates a caller-supplied calamity type string.
// Matching is case-insensitive; the canonical lowercase form is returned.
func ParseCalamityType(s string) (CalamityType, error) {
	switch c := CalamityType(strings.ToLower(s)); c {
	case CalamityFlood, CalamityFire, CalamityExplosion, CalamityEarthquake:
		return c, nil
	default:
		return "", fmt.Errorf("unknown calamity type: %q", s)
	}
}

// CalamityRequest is a caller's submission for a disaster simulation.
type CalamityRequest struct {
	SiteID       string           `json:"site_id"`
	CalamityType string           `json:"calamity_type"`
	Magnitude    float64          `json:"magnitude"`
	Unit         string           `json:"unit,omitempty"`
	Meteorology  *WeatherOverride `json:"meteorological_conditions,omitempty"`
}
