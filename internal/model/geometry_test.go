package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/industrisk/falloutsim/internal/domain"
)

func TestCirclePolygon(t *testing.T) {
	center := domain.Geo{Lat: 45.0, Lon: 10.0}
	poly := CirclePolygon(center, 11.1)

	require.Len(t, poly, 1)
	ring := poly[0]
	require.Len(t, ring, 33)

	// Closed ring.
	assert.Equal(t, ring[0], ring[32])

	// 11.1 km is exactly 0.1 degrees at the flat conversion.
	assert.InDelta(t, 10.1, ring[0].X, 1e-9)
	assert.InDelta(t, 45.0, ring[0].Y, 1e-9)

	// Every vertex sits 0.1 degrees from the center.
	for _, p := range ring {
		dx := p.X - center.Lon
		dy := p.Y - center.Lat
		assert.InDelta(t, 0.01, dx*dx+dy*dy, 1e-12)
	}
}

func TestCirclePolygonClosesExactly(t *testing.T) {
	// sin(2π) is not exactly zero, so the closing vertex must repeat the
	// first one rather than be recomputed. Near the equator the residue is
	// not absorbed by the latitude's own magnitude.
	centers := []domain.Geo{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 120},
		{Lat: -0.0001, Lon: 36.8},
		{Lat: 45.0, Lon: 10.0},
	}
	for _, c := range centers {
		ring := CirclePolygon(c, 45)[0]
		assert.Equal(t, ring[0], ring[len(ring)-1], "center %+v", c)
	}
}

func TestFalloutGeometry(t *testing.T) {
	g, err := FalloutGeometry(domain.Geo{Lat: 51.9, Lon: 4.4}, 5)
	require.NoError(t, err)
	assert.Equal(t, "Polygon", g.Type)
}
