// Package openmeteo implements the weather and terrain providers against
// the Open-Meteo forecast and elevation APIs. Neither endpoint requires an
// API key.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/industrisk/falloutsim/internal/domain"
)

// defaultBoundaryLayerM stands in for the boundary layer height, which the
// forecast endpoint does not expose.
const defaultBoundaryLayerM = 1000.0

// WeatherClient implements domain.WeatherProvider using the Open-Meteo
// forecast API.
type WeatherClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewWeatherClient creates a forecast API client. baseURL is the API root,
// e.g. "https://api.open-meteo.com/v1".
func NewWeatherClient(baseURL string, timeout time.Duration, logger *slog.Logger) *WeatherClient {
	return &WeatherClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
	}
}

func (c *WeatherClient) CurrentWeather(ctx context.Context, at domain.Geo) (domain.WeatherConditions, error) {
	params := url.Values{
		"latitude":        {formatCoord(at.Lat)},
		"longitude":       {formatCoord(at.Lon)},
		"current":         {"temperature_2m,wind_speed_10m,wind_direction_10m,surface_pressure"},
		"wind_speed_unit": {"ms"},
		"timezone":        {"UTC"},
	}

	var resp forecastResponse
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/forecast?"+params.Encode(), &resp); err != nil {
		return domain.WeatherConditions{}, err
	}

	ts, err := time.Parse("2006-01-02T15:04", resp.Current.Time)
	if err != nil {
		// The payload is still usable without a timestamp.
		c.logger.Warn("unparseable observation time", "time", resp.Current.Time)
		ts = domain.Now().UTC()
	}

	return domain.WeatherConditions{
		Timestamp:            ts.UTC(),
		WindSpeedMS:          resp.Current.WindSpeed,
		WindDirectionDeg:     resp.Current.WindDirection,
		TemperatureC:         resp.Current.Temperature,
		PressureHPa:          resp.Current.SurfacePressure,
		BoundaryLayerHeightM: defaultBoundaryLayerM,
		Source:               "observed",
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("open-meteo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// Open-Meteo forecast response types.

type forecastResponse struct {
	Current currentBlock `json:"current"`
}

type currentBlock struct {
	Time            string  `json:"time"`
	Temperature     float64 `json:"temperature_2m"`
	WindSpeed       float64 `json:"wind_speed_10m"`
	WindDirection   float64 `json:"wind_direction_10m"`
	SurfacePressure float64 `json:"surface_pressure"`
}
