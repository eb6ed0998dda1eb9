package domain

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Pollutant is one entry in a facility's release inventory.
type Pollutant struct {
	Name     string  `json:"name"`
	AmountKg float64 `json:"release_amount_kg"`
}

// Facility is an industrial site as supplied by the facility registry.
// Read-only: simulations never mutate facility data.
type Facility struct {
	ID         string      `json:"facility_id"`
	Name       string      `json:"facility_name"`
	Geo        Geo         `json:"location"`
	Pollutants []Pollutant `json:"pollutants"`
}

// TotalInventoryKg sums the facility's pollutant release inventory.
func (f Facility) TotalInventoryKg() float64 {
	var total float64
	for _, p := range f.Pollutants {
		total += p.AmountKg
	}
	return total
}

// PrimaryToxins returns up to the first three inventory entry names.
func (f Facility) PrimaryToxins() []string {
	n := min(len(f.Pollutants), 3)
	toxins := make([]string, 0, n)
	for _, p := range f.Pollutants[:n] {
		toxins = append(toxins, p.Name)
	}
	return toxins
}

// SyntheticFacility is the degraded-mode substitute used when a facility
// lookup misses: a fixed coordinate and a generic mixed inventory.
func SyntheticFacility(siteID string) Facility {
	return Facility{
		ID:   siteID,
		Name: "Unknown Facility",
		Geo:  Geo{Lat: 45.0, Lon: 10.0},
		Pollutants: []Pollutant{
			{Name: "Mixed contaminants", AmountKg: 1000},
		},
	}
}

// CumulativeImpact aggregates pollutant load over all facilities within an
// analysis radius.
type CumulativeImpact struct {
	Location         Geo      `json:"location"`
	AnalysisRadiusKm float64  `json:"analysis_radius_km"`
	TotalFacilities  int      `json:"total_facilities"`
	TotalEmissionsKg float64  `json:"total_emissions_kg"`
	UniquePollutants int      `json:"unique_pollutants"`
	PollutantTypes   []string `json:"pollutant_types"`
	RiskScore        float64  `json:"risk_score"`
	RiskLevel        string   `json:"risk_level"`
}
