// Package main provides the schemacat API server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schemacat/schemacat/internal/config"
	"github.com/schemacat/schemacat/internal/llm"
	"github.com/schemacat/schemacat/internal/metrics"
	"github.com/schemacat/schemacat/internal/scan"
	"github.com/schemacat/schemacat/internal/server"
	"github.com/schemacat/schemacat/internal/service"
	"github.com/schemacat/schemacat/internal/store"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	logger.Info("schemacat-server starting",
		"version", version,
		"listen_addr", cfg.ListenAddr,
		"llm_provider", cfg.LLMProvider,
	)

	// Open the catalog store
	st, err := store.Open(store.Config{URL: cfg.CatalogURL}, logger)
	if err != nil {
		logger.Error("failed to open catalog store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close catalog store", "error", err)
		}
	}()

	// The enrichment model is optional: without one, ingestion still runs
	// and records deterministic fallback metadata.
	var generator scan.Generator
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	model, err := llm.NewModel(ctx, cfg)
	cancel()
	if err != nil {
		logger.Warn("enrichment model unavailable, using fallback metadata", "error", err)
	} else {
		generator = model
		logger.Info("enrichment model ready", "model", model.Model())
	}

	collector := metrics.NewCollector()
	enricher := scan.NewEnricher(generator, logger)
	pipeline := scan.NewPipeline(st, enricher, logger)
	jobs := service.NewJobService(service.NewMeteredRunner(pipeline, collector), logger)

	srv := server.New(st, jobs, collector, cfg.JWTSecret, logger)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.ListenAddr)
	}()

	// Wait for interrupt signal or server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
