package openmeteo

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/industrisk/falloutsim/internal/domain"
)

// slopeSampleDeg is the half-width of the finite-difference stencil used
// for slope estimation, roughly 55 m on the ground.
const slopeSampleDeg = 0.0005

// ElevationClient implements domain.TerrainProvider using the Open-Meteo
// elevation API. Slope is estimated from a five-point elevation stencil
// around the location.
type ElevationClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewElevationClient creates an elevation API client. baseURL is the API
// root, e.g. "https://api.open-meteo.com/v1".
func NewElevationClient(baseURL string, timeout time.Duration, logger *slog.Logger) *ElevationClient {
	return &ElevationClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
	}
}

func (c *ElevationClient) Elevation(ctx context.Context, at domain.Geo) (float64, error) {
	elevations, err := c.fetch(ctx, []domain.Geo{at})
	if err != nil {
		return 0, err
	}
	return elevations[0], nil
}

// Slope estimates terrain steepness in degrees from central differences
// over a north/south/east/west elevation stencil.
func (c *ElevationClient) Slope(ctx context.Context, at domain.Geo) (float64, error) {
	stencil := []domain.Geo{
		{Lat: at.Lat + slopeSampleDeg, Lon: at.Lon}, // north
		{Lat: at.Lat - slopeSampleDeg, Lon: at.Lon}, // south
		{Lat: at.Lat, Lon: at.Lon + slopeSampleDeg}, // east
		{Lat: at.Lat, Lon: at.Lon - slopeSampleDeg}, // west
	}
	e, err := c.fetch(ctx, stencil)
	if err != nil {
		return 0, err
	}

	latStepM := slopeSampleDeg * 111000
	lonStepM := slopeSampleDeg * 111000 * math.Cos(at.Lat*math.Pi/180)

	dzdy := (e[0] - e[1]) / (2 * latStepM)
	dzdx := (e[2] - e[3]) / (2 * lonStepM)

	gradient := math.Sqrt(dzdx*dzdx + dzdy*dzdy)
	return math.Atan(gradient) * 180 / math.Pi, nil
}

// fetch queries the batched elevation endpoint and returns one value per
// requested point.
func (c *ElevationClient) fetch(ctx context.Context, points []domain.Geo) ([]float64, error) {
	lats := make([]string, len(points))
	lons := make([]string, len(points))
	for i, p := range points {
		lats[i] = formatCoord(p.Lat)
		lons[i] = formatCoord(p.Lon)
	}

	params := url.Values{
		"latitude":  {strings.Join(lats, ",")},
		"longitude": {strings.Join(lons, ",")},
	}

	var resp elevationResponse
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/elevation?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	if len(resp.Elevation) != len(points) {
		return nil, fmt.Errorf("%w: got %d elevations for %d points",
			domain.ErrTerrainUnavailable, len(resp.Elevation), len(points))
	}
	return resp.Elevation, nil
}

type elevationResponse struct {
	Elevation []float64 `json:"elevation"`
}
