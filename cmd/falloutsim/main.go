package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/industrisk/falloutsim/internal/adapter/facilityfile"
	"github.com/industrisk/falloutsim/internal/adapter/httpapi"
	kafkaadapter "github.com/industrisk/falloutsim/internal/adapter/kafka"
	"github.com/industrisk/falloutsim/internal/adapter/openmeteo"
	"github.com/industrisk/falloutsim/internal/config"
	"github.com/industrisk/falloutsim/internal/domain"
	"github.com/industrisk/falloutsim/internal/engine"
	"github.com/industrisk/falloutsim/internal/model"
	"github.com/industrisk/falloutsim/internal/observability"
	"github.com/industrisk/falloutsim/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	facilities, err := facilityfile.New(cfg.FacilitiesPath, logger)
	if err != nil {
		logger.Error("failed to load facility registry", "error", err)
		os.Exit(1)
	}
	logger.Info("facility registry loaded", "path", cfg.FacilitiesPath, "facilities", facilities.Len())

	weather := openmeteo.NewWeatherClient(cfg.WeatherBaseURL, cfg.ProviderTimeout, logger)

	var terrain domain.TerrainProvider
	terrain = openmeteo.NewElevationClient(cfg.ElevationBaseURL, cfg.ProviderTimeout, logger)
	if cfg.TerrainCacheSize > 0 {
		terrain = openmeteo.NewCachedTerrain(terrain, cfg.TerrainCacheSize)
		logger.Info("terrain cache enabled", "size", cfg.TerrainCacheSize)
	}

	var taskStore store.TaskStore
	switch cfg.TaskStore {
	case "sqlite":
		taskStore, err = store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			logger.Error("failed to open task store", "error", err, "path", cfg.SQLitePath)
			os.Exit(1)
		}
		logger.Info("sqlite task store opened", "path", cfg.SQLitePath)
	default:
		taskStore = store.NewMemoryStore()
		logger.Info("in-memory task store enabled")
	}

	// Risk-profile publishing is feature-flagged via KAFKA_ENABLED.
	var publisher engine.Publisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	eng := engine.New(
		taskStore,
		model.DefaultRegistry(),
		facilities,
		weather,
		terrain,
		publisher,
		logger,
		metrics,
		engine.Options{
			MaxRadiusKm:             cfg.MaxSimulationRadiusKm,
			ReleaseHeightM:          cfg.DefaultReleaseHeightM,
			InitialConcentrationPPM: cfg.InitialConcentrationPPM,
			ProviderTimeout:         cfg.ProviderTimeout,
		},
	)

	srv := httpapi.NewServer(cfg.HTTPAddr, eng, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := eng.Shutdown(shutdownCtx); err != nil {
		logger.Error("engine shutdown error", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if err := taskStore.Close(); err != nil {
		logger.Error("task store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
