package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/config"
	"github.com/mikey/phishsense/internal/core"
	"github.com/mikey/phishsense/internal/di"
	"github.com/mikey/phishsense/internal/ports"
	"github.com/mikey/phishsense/internal/scoring"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	frontends []ports.Frontend,
	models *scoring.Service,
	service *core.AnalysisService,
	store core.ScanStore,
) error {
	defer logger.Sync()

	logger.Info("Starting phishsense",
		zap.String("session_id", service.SessionID()),
		zap.Float64("threshold", cfg.GetAnalysis().Threshold),
		zap.String("history", cfg.GetHistory().Type))

	if cfg.GetModel().Preload {
		for _, status := range models.Warm() {
			if status.Loaded {
				logger.Info("Model loaded", zap.String("model", status.Name))
			} else {
				logger.Warn("Model unavailable, using fallback score",
					zap.String("model", status.Name),
					zap.String("error", status.Error))
			}
		}
	}

	// Start the frontends
	started := make([]ports.Frontend, 0, len(frontends))
	for _, f := range frontends {
		if err := f.Start(); err != nil {
			logger.Error("Failed to start frontend", zap.String("frontend", f.Name()), zap.Error(err))
			stopAll(logger, started)
			closeStore(logger, store)
			return err
		}
		started = append(started, f)
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	stopAll(logger, started)
	closeStore(logger, store)

	logger.Info("Shutdown complete")
	return nil
}

func stopAll(logger *zap.Logger, frontends []ports.Frontend) {
	for _, f := range frontends {
		if err := f.Stop(); err != nil {
			logger.Error("Failed to stop frontend", zap.String("frontend", f.Name()), zap.Error(err))
		}
	}
}

func closeStore(logger *zap.Logger, store core.ScanStore) {
	if err := store.Close(); err != nil {
		logger.Error("Failed to close scan history", zap.Error(err))
	}
}
