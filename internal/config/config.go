// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Provider configuration.
	FacilitiesPath   string
	WeatherBaseURL   string
	ElevationBaseURL string
	ProviderTimeout  time.Duration
	TerrainCacheSize int

	// Simulation tunables.
	MaxSimulationRadiusKm   float64
	DefaultReleaseHeightM   float64
	InitialConcentrationPPM float64

	// Task persistence: "memory" or "sqlite".
	TaskStore  string
	SQLitePath string

	// Kafka risk-profile publishing.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeoutStr := envOrDefault("SHUTDOWN_TIMEOUT", "10s")
	shutdownTimeout, err := time.ParseDuration(shutdownTimeoutStr)
	if err != nil || shutdownTimeout <= 0 {
		return nil, errors.New("invalid SHUTDOWN_TIMEOUT")
	}

	providerTimeoutStr := envOrDefault("PROVIDER_TIMEOUT", "5s")
	providerTimeout, err := time.ParseDuration(providerTimeoutStr)
	if err != nil || providerTimeout <= 0 {
		return nil, errors.New("invalid PROVIDER_TIMEOUT")
	}

	maxRadius, err := parsePositiveFloat("MAX_SIMULATION_RADIUS_KM", 50)
	if err != nil {
		return nil, err
	}
	releaseHeight, err := parsePositiveFloat("DEFAULT_RELEASE_HEIGHT_M", 10)
	if err != nil {
		return nil, err
	}
	initialConc, err := parsePositiveFloat("INITIAL_CONCENTRATION_PPM", 100)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		FacilitiesPath:   envOrDefault("FACILITIES_PATH", "data/facilities.json"),
		WeatherBaseURL:   envOrDefault("WEATHER_BASE_URL", "https://api.open-meteo.com/v1"),
		ElevationBaseURL: envOrDefault("ELEVATION_BASE_URL", "https://api.open-meteo.com/v1"),
		ProviderTimeout:  providerTimeout,
		TerrainCacheSize: parseCacheSize(),

		MaxSimulationRadiusKm:   maxRadius,
		DefaultReleaseHeightM:   releaseHeight,
		InitialConcentrationPPM: initialConc,

		TaskStore:  envOrDefault("TASK_STORE", "memory"),
		SQLitePath: envOrDefault("SQLITE_PATH", "data/falloutsim.db"),

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "risk-profiles"),
	}

	switch cfg.TaskStore {
	case "memory", "sqlite":
	default:
		return nil, fmt.Errorf("invalid TASK_STORE %q, want memory or sqlite", cfg.TaskStore)
	}
	if cfg.TaskStore == "sqlite" && cfg.SQLitePath == "" {
		return nil, errors.New("SQLITE_PATH is required when TASK_STORE is sqlite")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parsePositiveFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseCacheSize() int {
	if s := os.Getenv("TERRAIN_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
