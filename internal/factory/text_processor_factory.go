package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/config"
	"github.com/mikey/phishsense/internal/utils"
	"github.com/mikey/phishsense/internal/whitelist"
)

// TextProcessorFactory creates the text helpers shared by the pipeline and the frontends
type TextProcessorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTextProcessorFactory creates a new TextProcessorFactory
func NewTextProcessorFactory(cfg *config.Config, logger *zap.Logger) *TextProcessorFactory {
	return &TextProcessorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTextProcessor creates a new TextProcessor
func (f *TextProcessorFactory) CreateTextProcessor() *utils.TextProcessor {
	return utils.NewTextProcessor(f.logger)
}

// CreateTrustedDomains creates the trusted sender checker used by the SMTP filter
func (f *TextProcessorFactory) CreateTrustedDomains() *whitelist.Checker {
	return whitelist.NewChecker(f.cfg.GetServer().SMTP.TrustedDomains, f.logger)
}
