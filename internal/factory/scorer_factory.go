package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/config"
	"github.com/mikey/phishsense/internal/scoring"
)

// ScorerFactory creates the model-backed scorers
type ScorerFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewScorerFactory creates a new scorer factory
func NewScorerFactory(cfg *config.Config, logger *zap.Logger) *ScorerFactory {
	return &ScorerFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateScoringService creates the scoring service; artifacts load on first use
func (f *ScorerFactory) CreateScoringService() *scoring.Service {
	mc := f.cfg.GetModel()
	return scoring.NewService(scoring.ModelConfig{
		Dir: mc.Dir,
		URL: scoring.ArtifactPaths{
			Classifier: mc.URLClassifier,
			Vectorizer: mc.URLVectorizer,
		},
		Email: scoring.ArtifactPaths{
			Classifier: mc.EmailClassifier,
			Vectorizer: mc.EmailVectorizer,
		},
		FallbackScore: mc.FallbackScore,
	}, f.logger)
}

// ShouldPreload reports whether the daemon loads models at startup
func (f *ScorerFactory) ShouldPreload() bool {
	return f.cfg.GetModel().Preload
}
