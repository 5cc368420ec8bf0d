package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/adapters/qr"
	"github.com/mikey/phishsense/internal/config"
	"github.com/mikey/phishsense/internal/core"
	"github.com/mikey/phishsense/internal/features"
	"github.com/mikey/phishsense/internal/scoring"
	"github.com/mikey/phishsense/internal/utils"
)

// AnalysisFactory assembles the analysis pipeline
type AnalysisFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewAnalysisFactory creates a new analysis factory
func NewAnalysisFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *AnalysisFactory {
	return &AnalysisFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateAnalysisService wires extractors, scorers, the QR decoder and the store
func (f *AnalysisFactory) CreateAnalysisService(models *scoring.Service, scanStore core.ScanStore) (*core.AnalysisService, error) {
	dc := f.cfg.GetDatasets()
	lexicon := features.LoadLexicon(features.DatasetPaths{
		SuspiciousWords: dc.SuspiciousWords,
		Shorteners:      dc.Shorteners,
		PhishingPhrases: dc.PhishingPhrases,
	}, f.logger)

	session, err := core.NewProcessSession(f.cfg.GetHistory().SessionID)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("Resolved process session", zap.String("session_id", session.ID()))

	urlExtractor := features.NewURLExtractor(lexicon)
	hc := f.cfg.GetServer().HTTP
	return core.NewAnalysisService(
		urlExtractor,
		features.NewEmailExtractor(lexicon, urlExtractor),
		models.Scorers(),
		qr.NewGozxingDecoder(hc.MaxUploadBytes, hc.MaxImagePixels, f.logger),
		features.NewPayloadRouter(),
		scanStore,
		core.NewAggregator(f.cfg.GetAnalysis().Threshold),
		core.NewMonotonicClock(),
		session,
		f.textProcessor,
		f.logger,
	)
}
