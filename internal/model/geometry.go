package model

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"

	"github.com/industrisk/falloutsim/internal/domain"
)

// kmPerDegree is the flat-earth conversion used for footprint geometry.
// Adequate at the tens-of-kilometers scale these footprints cover.
const kmPerDegree = 111.0

// circleEdges is the polygon resolution of a circular footprint. The ring
// carries circleEdges+1 vertices, the last repeating the first.
const circleEdges = 32

// CirclePolygon approximates a circle of radiusKm around center as a closed
// single-ring polygon in [longitude, latitude] order.
func CirclePolygon(center domain.Geo, radiusKm float64) geom.Polygon {
	ring := make([]geom.Point, 0, circleEdges+1)
	for i := 0; i < circleEdges; i++ {
		angle := float64(i) / circleEdges * 2 * math.Pi
		ring = append(ring, geom.Point{
			X: center.Lon + radiusKm/kmPerDegree*math.Cos(angle),
			Y: center.Lat + radiusKm/kmPerDegree*math.Sin(angle),
		})
	}
	// Close by repeating the first vertex exactly. Recomputing it at 2π
	// leaves a sin residue that breaks bitwise ring closure near the equator.
	ring = append(ring, ring[0])
	return geom.Polygon{ring}
}

// FalloutGeometry encodes a circular footprint as a GeoJSON polygon.
func FalloutGeometry(center domain.Geo, radiusKm float64) (*geojson.Geometry, error) {
	return geojson.ToGeoJSON(CirclePolygon(center, radiusKm))
}
