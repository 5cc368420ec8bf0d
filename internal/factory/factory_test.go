package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/adapters/store"
	"github.com/mikey/phishsense/internal/config"
	"github.com/mikey/phishsense/internal/core"
	"github.com/mikey/phishsense/internal/utils"
	"github.com/mikey/phishsense/internal/whitelist"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewFromViper(config.NewEmptyViper())
	cfg.Set("model.dir", filepath.Join("..", "..", "models"))
	cfg.Set("datasets.suspicious_words", filepath.Join("..", "..", "data", "suspicious_words.txt"))
	cfg.Set("datasets.shorteners", filepath.Join("..", "..", "data", "shorteners.txt"))
	cfg.Set("datasets.phishing_phrases", filepath.Join("..", "..", "data", "phishing_phrases.csv"))
	cfg.Set("history.type", "memory")
	cfg.Set("history.session_id", "factory-test")
	return cfg
}

func TestStoreFactory_CreatesConfiguredBackend(t *testing.T) {
	ctx := context.Background()

	cases := map[string]func(t *testing.T, cfg *config.Config){
		"memory": func(t *testing.T, cfg *config.Config) {},
		"jsonl": func(t *testing.T, cfg *config.Config) {
			cfg.Set("history.dir", t.TempDir())
		},
		"sqlite": func(t *testing.T, cfg *config.Config) {
			cfg.Set("history.sqlite_path", filepath.Join(t.TempDir(), "scans.db"))
		},
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := newTestConfig(t)
			cfg.Set("history.type", name)
			setup(t, cfg)

			s, err := NewStoreFactory(cfg, zap.NewNop()).CreateScanStore(ctx)
			require.NoError(t, err)
			defer s.Close()

			switch name {
			case "memory":
				assert.IsType(t, &store.MemoryStore{}, s)
			case "jsonl":
				assert.IsType(t, &store.JSONLStore{}, s)
			case "sqlite":
				assert.IsType(t, &store.SQLiteStore{}, s)
			}
		})
	}
}

func TestStoreFactory_RejectsUnknownType(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Set("history.type", "cassandra")

	_, err := NewStoreFactory(cfg, zap.NewNop()).CreateScanStore(context.Background())
	assert.ErrorContains(t, err, "unsupported history type")
}

func TestScorerFactory_LoadsBundledModels(t *testing.T) {
	cfg := newTestConfig(t)
	f := NewScorerFactory(cfg, zap.NewNop())
	assert.True(t, f.ShouldPreload())

	for _, status := range f.CreateScoringService().Warm() {
		assert.True(t, status.Loaded, "%s: %s", status.Name, status.Error)
	}
}

func TestAnalysisFactory_BundledModelsSeparateObviousCases(t *testing.T) {
	cfg := newTestConfig(t)
	logger := zap.NewNop()
	models := NewScorerFactory(cfg, logger).CreateScoringService()

	service, err := NewAnalysisFactory(cfg, logger, utils.NewTextProcessor(logger)).
		CreateAnalysisService(models, store.NewMemoryStore(logger))
	require.NoError(t, err)
	assert.Equal(t, "factory-test", service.SessionID())

	ctx := context.Background()
	safe := service.AnalyzeURL(ctx, "https://example.com")
	assert.Equal(t, core.VerdictSafe, safe.Verdict)

	bad := service.AnalyzeURL(ctx, "http://192.168.10.4/secure/login/verify-account")
	assert.Equal(t, core.VerdictSuspicious, bad.Verdict)
}

func TestFrontendFactory_CreatesNamedFrontends(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Set("server.frontends", []string{"http", "SMTP", "http"})
	logger := zap.NewNop()

	models := NewScorerFactory(cfg, logger).CreateScoringService()
	tp := utils.NewTextProcessor(logger)
	service, err := NewAnalysisFactory(cfg, logger, tp).CreateAnalysisService(models, store.NewMemoryStore(logger))
	require.NoError(t, err)

	f := NewFrontendFactory(cfg, logger, service, models, tp, whitelist.NewChecker(nil, logger))
	frontends, err := f.CreateFrontends()
	require.NoError(t, err)

	var names []string
	for _, fe := range frontends {
		names = append(names, fe.Name())
	}
	assert.Equal(t, []string{"http", "smtp"}, names)

	cfg.Set("server.frontends", []string{"milter"})
	_, err = f.CreateFrontends()
	assert.ErrorContains(t, err, "unsupported frontend")
}
