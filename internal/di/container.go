package di

import (
	"context"

	"go.uber.org/dig"

	"github.com/mikey/phishsense/internal/config"
	"github.com/mikey/phishsense/internal/core"
	"github.com/mikey/phishsense/internal/factory"
	"github.com/mikey/phishsense/internal/logging"
	"github.com/mikey/phishsense/internal/ports"
	"github.com/mikey/phishsense/internal/scoring"
	"github.com/mikey/phishsense/internal/utils"
	"github.com/mikey/phishsense/internal/whitelist"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideAnalysis(container); err != nil {
		return nil, err
	}

	// Register daemon-only components
	if err := container.Provide(factory.NewFrontendFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.TextProcessorFactory) *whitelist.Checker {
		return f.CreateTrustedDomains()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.FrontendFactory) ([]ports.Frontend, error) {
		return f.CreateFrontends()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideAnalysis registers everything the analysis pipeline needs. Configuration
// and the logger must already be provided.
func provideAnalysis(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewScorerFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewAnalysisFactory); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register model scorers
	if err := container.Provide(func(f *factory.ScorerFactory) *scoring.Service {
		return f.CreateScoringService()
	}); err != nil {
		return err
	}

	// Register scan history store
	if err := container.Provide(func(f *factory.StoreFactory) (core.ScanStore, error) {
		return f.CreateScanStore(context.Background())
	}); err != nil {
		return err
	}

	// Register analysis service
	if err := container.Provide(func(f *factory.AnalysisFactory, models *scoring.Service, store core.ScanStore) (*core.AnalysisService, error) {
		return f.CreateAnalysisService(models, store)
	}); err != nil {
		return err
	}

	return nil
}
