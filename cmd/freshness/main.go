package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/facility-freshness/internal/adapter/catalog"
	httpadapter "github.com/couchcryptid/facility-freshness/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/facility-freshness/internal/adapter/kafka"
	"github.com/couchcryptid/facility-freshness/internal/adapter/linksheet"
	"github.com/couchcryptid/facility-freshness/internal/config"
	"github.com/couchcryptid/facility-freshness/internal/domain"
	"github.com/couchcryptid/facility-freshness/internal/observability"
	"github.com/couchcryptid/facility-freshness/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

func main() {
	config.LoadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	macros := domain.MacroRegions
	if cfg.MacroRegionsFile != "" {
		macros, err = domain.LoadMacroRegions(cfg.MacroRegionsFile)
		if err != nil {
			logger.Error("failed to load macro regions", "file", cfg.MacroRegionsFile, "error", err)
			os.Exit(1)
		}
		logger.Info("macro regions loaded", "file", cfg.MacroRegionsFile, "regions", len(macros))
	}

	catalogClient := catalog.NewClient(cfg.CatalogURL, cfg.FetchTimeout, logger, metrics)
	linkClient := linksheet.NewClient(cfg.LinkSheetURL, cfg.FetchTimeout, logger, metrics)

	r := pipeline.New(catalogClient, linkClient, domain.NewClassifier(cfg.DatePolicy), logger, metrics).
		WithInterval(cfg.RefreshInterval)

	// Snapshot publishing is feature-flagged via KAFKA_ENABLED.
	var writer *kafkaadapter.SnapshotWriter
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewSnapshotWriter(cfg, logger)
		r.WithPublisher(writer)
		logger.Info("snapshot publishing enabled", "topic", cfg.KafkaSnapshotTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("snapshot publishing disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, r, httpadapter.Options{
		CacheTTL:     cfg.ResponseCacheTTL,
		MacroRegions: macros,
	}, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh loop.
	go func() {
		if err := r.Run(ctx); err != nil {
			logger.Error("reconciler error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
