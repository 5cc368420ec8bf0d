package frontend

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/adapters/qr"
	"github.com/mikey/phishsense/internal/adapters/store"
	"github.com/mikey/phishsense/internal/core"
	"github.com/mikey/phishsense/internal/features"
	"github.com/mikey/phishsense/internal/scoring"
	"github.com/mikey/phishsense/internal/utils"
)

const testSessionID = "test-session"

// newTestService wires the real pipeline with a small in-memory URL model:
// one suspicious word scores about 0.73, a clean URL about 0.12.
// The email text model is unavailable so its score falls back.
func newTestService(t *testing.T) (*core.AnalysisService, *store.MemoryStore) {
	t.Helper()
	logger := zap.NewNop()

	vec, err := scoring.NewFeatureVectorizer(core.URLFeatureSchemaVersion, []string{"suspicious_word_count", "uses_ip"})
	require.NoError(t, err)
	clf, err := scoring.NewLogisticRegression([]float64{3, 3}, -2)
	require.NoError(t, err)
	model, err := scoring.NewModel(vec, clf)
	require.NoError(t, err)

	urlScorer := scoring.NewModelScorerFunc("url", core.RepresentationVector, func() (*scoring.Model, error) {
		return model, nil
	}, scoring.DefaultFallbackScore, logger)
	textScorer := scoring.NewModelScorerFunc("email", core.RepresentationText, func() (*scoring.Model, error) {
		return nil, errors.New("no email model in tests")
	}, scoring.DefaultFallbackScore, logger)

	session, err := core.NewProcessSession(testSessionID)
	require.NoError(t, err)

	lexicon := features.DefaultLexicon()
	urlExtractor := features.NewURLExtractor(lexicon)
	mem := store.NewMemoryStore(logger)

	svc, err := core.NewAnalysisService(
		urlExtractor,
		features.NewEmailExtractor(lexicon, urlExtractor),
		core.Scorers{URL: urlScorer, Text: textScorer},
		qr.NewGozxingDecoder(0, 0, logger),
		features.NewPayloadRouter(),
		mem,
		core.NewAggregator(core.DefaultThreshold),
		core.NewMonotonicClock(),
		session,
		utils.NewTextProcessor(logger),
		logger,
	)
	require.NoError(t, err)
	return svc, mem
}
