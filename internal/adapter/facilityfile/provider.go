// Package facilityfile serves facility records from a JSON registry file
// loaded at startup.
package facilityfile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"

	"github.com/industrisk/falloutsim/internal/domain"
)

const earthRadiusKm = 6371.0

// Provider is a read-only domain.FacilityProvider backed by a JSON file.
// A missing registry file degrades to an empty provider so every lookup
// falls back to a synthetic facility; a malformed file is a hard error.
type Provider struct {
	byID   map[string]domain.Facility
	all    []domain.Facility
	logger *slog.Logger
}

// New loads the registry at path.
func New(path string, logger *slog.Logger) (*Provider, error) {
	p := &Provider{byID: make(map[string]domain.Facility), logger: logger}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Warn("facility registry not found, all lookups will use synthetic facilities", "path", path)
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read facility registry %s: %w", path, err)
	}

	var facilities []domain.Facility
	if err := json.Unmarshal(data, &facilities); err != nil {
		return nil, fmt.Errorf("parse facility registry %s: %w", path, err)
	}

	for _, f := range facilities {
		if f.ID == "" {
			continue
		}
		p.byID[f.ID] = f
		p.all = append(p.all, f)
	}

	logger.Info("facility registry loaded", "path", path, "facilities", len(p.all))
	return p, nil
}

// Len reports the number of loaded facilities.
func (p *Provider) Len() int { return len(p.all) }

func (p *Provider) FacilityByID(_ context.Context, id string) (domain.Facility, error) {
	f, ok := p.byID[id]
	if !ok {
		return domain.Facility{}, fmt.Errorf("%w: %s", domain.ErrFacilityNotFound, id)
	}
	return f, nil
}

func (p *Provider) FacilitiesNear(_ context.Context, center domain.Geo, radiusKm float64, limit int) ([]domain.Facility, error) {
	type candidate struct {
		f    domain.Facility
		dist float64
	}

	var within []candidate
	for _, f := range p.all {
		d := haversineKm(center, f.Geo)
		if d <= radiusKm {
			within = append(within, candidate{f, d})
		}
	}
	sort.Slice(within, func(i, j int) bool { return within[i].dist < within[j].dist })

	if limit > 0 && len(within) > limit {
		within = within[:limit]
	}
	out := make([]domain.Facility, len(within))
	for i, c := range within {
		out[i] = c.f
	}
	return out, nil
}

// haversineKm is the great-circle distance between two coordinates.
func haversineKm(a, b domain.Geo) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
