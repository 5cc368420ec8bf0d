package scoring

import (
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/core"
)

// ModelConfig locates the URL and email model artifacts
type ModelConfig struct {
	Dir           string
	URL           ArtifactPaths
	Email         ArtifactPaths
	FallbackScore float64
}

// resolve joins relative artifact paths onto Dir
func (c ModelConfig) resolve(p ArtifactPaths) ArtifactPaths {
	join := func(name string) string {
		if name == "" || filepath.IsAbs(name) || c.Dir == "" {
			return name
		}
		return filepath.Join(c.Dir, name)
	}
	return ArtifactPaths{
		Classifier: join(p.Classifier),
		Vectorizer: join(p.Vectorizer),
	}
}

// Service owns one lazily loaded scorer per modality
type Service struct {
	url   *ModelScorer
	email *ModelScorer
}

// NewService creates the URL and email scorers; nothing is read from disk yet
func NewService(cfg ModelConfig, logger *zap.Logger) *Service {
	return &Service{
		url:   NewModelScorer("url", core.RepresentationVector, cfg.resolve(cfg.URL), cfg.FallbackScore, logger),
		email: NewModelScorer("email", core.RepresentationText, cfg.resolve(cfg.Email), cfg.FallbackScore, logger),
	}
}

// Scorers returns the scorers in the form the analysis service consumes
func (s *Service) Scorers() core.Scorers {
	return core.Scorers{URL: s.url, Text: s.email}
}

// Warm loads both models and reports their status
func (s *Service) Warm() []Status {
	return []Status{s.url.Status(), s.email.Status()}
}
