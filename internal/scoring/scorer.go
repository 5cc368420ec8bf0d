package scoring

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mikey/phishsense/internal/core"
)

// DefaultFallbackScore is returned whenever a model cannot be used
const DefaultFallbackScore = 0.5

// ArtifactPaths names the two files that make up one model
type ArtifactPaths struct {
	Classifier string
	Vectorizer string
}

// Model is a loaded vectorizer and classifier pair; read-only once built
type Model struct {
	Vectorizer Vectorizer
	Classifier Classifier
}

// NewModel pairs a vectorizer with a classifier of matching dimension
func NewModel(v Vectorizer, c Classifier) (*Model, error) {
	if v.Dimension() != c.Dimension() {
		return nil, fmt.Errorf("vectorizer dimension %d does not match classifier dimension %d", v.Dimension(), c.Dimension())
	}
	return &Model{Vectorizer: v, Classifier: c}, nil
}

// LoadModel reads both artifacts from disk
func LoadModel(paths ArtifactPaths) (*Model, error) {
	v, err := LoadVectorizer(paths.Vectorizer)
	if err != nil {
		return nil, err
	}
	c, err := LoadClassifier(paths.Classifier)
	if err != nil {
		return nil, err
	}
	return NewModel(v, c)
}

type loadResult struct {
	model *Model
	err   error
}

// ModelScorer implements core.Scorer over a lazily loaded model.
// The model is loaded at most once; concurrent first callers share one load,
// and a failed load is remembered so every later call falls back immediately.
type ModelScorer struct {
	name     string
	expects  core.Representation
	load     func() (*Model, error)
	fallback float64
	logger   *zap.Logger

	group  singleflight.Group
	result atomic.Pointer[loadResult]
}

// NewModelScorer creates a scorer that loads its model from paths on first use
func NewModelScorer(name string, expects core.Representation, paths ArtifactPaths, fallback float64, logger *zap.Logger) *ModelScorer {
	return NewModelScorerFunc(name, expects, func() (*Model, error) {
		return LoadModel(paths)
	}, fallback, logger)
}

// NewModelScorerFunc creates a scorer with a custom model loader
func NewModelScorerFunc(name string, expects core.Representation, load func() (*Model, error), fallback float64, logger *zap.Logger) *ModelScorer {
	if fallback < 0 || fallback > 1 {
		fallback = DefaultFallbackScore
	}
	return &ModelScorer{
		name:     name,
		expects:  expects,
		load:     load,
		fallback: fallback,
		logger:   logger,
	}
}

// Expects implements core.Scorer
func (s *ModelScorer) Expects() core.Representation {
	return s.expects
}

// Score implements core.Scorer; it never fails
func (s *ModelScorer) Score(features core.Features) core.Score {
	model, err := s.Model()
	if err != nil {
		s.logger.Debug("Model unavailable, using fallback score",
			zap.String("model", s.name),
			zap.Float64("score", s.fallback))
		return core.Score{Probability: s.fallback, Fallback: true}
	}

	x, err := model.Vectorizer.Transform(features)
	if err != nil {
		s.logger.Warn("Failed to vectorize features, using fallback score",
			zap.String("model", s.name),
			zap.Error(err))
		return core.Score{Probability: s.fallback, Fallback: true}
	}

	p := model.Classifier.PredictProba(x)
	if math.IsNaN(p) {
		return core.Score{Probability: s.fallback, Fallback: true}
	}
	return core.Score{Probability: math.Min(1, math.Max(0, p))}
}

// Model returns the loaded model, loading it on the first call
func (s *ModelScorer) Model() (*Model, error) {
	if r := s.result.Load(); r != nil {
		return r.model, r.err
	}

	v, _, _ := s.group.Do(s.name, func() (interface{}, error) {
		if r := s.result.Load(); r != nil {
			return r, nil
		}
		r := s.loadOnce()
		s.result.Store(r)
		return r, nil
	})
	r := v.(*loadResult)
	return r.model, r.err
}

func (s *ModelScorer) loadOnce() *loadResult {
	model, err := s.load()
	if err == nil && model.Vectorizer.Representation() != s.expects {
		err = fmt.Errorf("%s model vectorizer consumes %s features, want %s: %w",
			s.name, model.Vectorizer.Representation(), s.expects, core.ErrRepresentationMismatch)
	}
	if err != nil {
		s.logger.Warn("Failed to load model artifacts, scores will use the fallback",
			zap.String("model", s.name),
			zap.Float64("fallback_score", s.fallback),
			zap.Error(err))
		return &loadResult{err: errors.Join(core.ErrModelUnavailable, err)}
	}

	s.logger.Info("Loaded model artifacts",
		zap.String("model", s.name),
		zap.Int("dimension", model.Vectorizer.Dimension()))
	return &loadResult{model: model}
}

// Status describes whether a scorer's model is usable
type Status struct {
	Name   string `json:"name"`
	Loaded bool   `json:"loaded"`
	Error  string `json:"error,omitempty"`
}

// Status loads the model if needed and reports the outcome
func (s *ModelScorer) Status() Status {
	_, err := s.Model()
	st := Status{Name: s.name, Loaded: err == nil}
	if err != nil {
		st.Error = err.Error()
	}
	return st
}
