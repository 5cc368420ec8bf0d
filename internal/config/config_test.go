package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	assert.Equal(t, 0.5, cfg.GetAnalysis().Threshold)

	model := cfg.GetModel()
	assert.Equal(t, "./models", model.Dir)
	assert.Equal(t, "url_model.json", model.URLClassifier)
	assert.Equal(t, "email_vectorizer.json", model.EmailVectorizer)
	assert.Equal(t, 0.5, model.FallbackScore)

	history := cfg.GetHistory()
	assert.Equal(t, "jsonl", history.Type)
	assert.Equal(t, "scans.jsonl", history.GlobalFile)
	assert.Equal(t, "session_scans.jsonl", history.SessionFile)
	assert.Empty(t, history.SessionID)
	assert.Equal(t, 3, history.Retry.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, history.Retry.BaseDelay)

	server := cfg.GetServer()
	assert.Equal(t, []string{"http"}, server.Frontends)
	assert.Equal(t, "X-Phish-Verdict", server.SMTP.Headers.Verdict)
	assert.Equal(t, 10026, server.SMTP.RelayPort)
	assert.Equal(t, int64(5*1024*1024), server.HTTP.MaxUploadBytes)
	assert.Equal(t, int64(16_000_000), server.HTTP.MaxImagePixels)

	assert.Equal(t, "info", cfg.GetLogging().Level)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phishsense.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
analysis:
  threshold: 0.7
history:
  type: SQLite
  session_id: fixed-session
server:
  frontends: [http, smtp]
  smtp:
    trusted_domains: [example.com]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.7, cfg.GetAnalysis().Threshold)
	assert.Equal(t, "sqlite", cfg.GetHistory().Type)
	assert.Equal(t, "fixed-session", cfg.GetHistory().SessionID)
	assert.Equal(t, []string{"http", "smtp"}, cfg.GetServer().Frontends)
	assert.Equal(t, []string{"example.com"}, cfg.GetServer().SMTP.TrustedDomains)
	assert.Equal(t, "./models", cfg.GetModel().Dir)
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PHISHSENSE_ANALYSIS_THRESHOLD", "0.65")
	t.Setenv("PHISHSENSE_HISTORY_TYPE", "memory")

	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.65, cfg.GetAnalysis().Threshold)
	assert.Equal(t, "memory", cfg.GetHistory().Type)
	assert.Equal(t, "debug", cfg.GetLogging().Level)
}

func TestGetDuration_Invalid(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	cfg.Set("history.retry.base_delay", "soon")

	_, err := cfg.GetDuration("history.retry.base_delay")
	assert.Error(t, err)
	assert.Equal(t, 100*time.Millisecond, cfg.GetHistory().Retry.BaseDelay)
}
