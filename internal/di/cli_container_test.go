package di

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/phishsense/internal/config"
	"github.com/mikey/phishsense/internal/core"
)

func TestParseFlags_ReturnsRemainingArgs(t *testing.T) {
	flags, rest, err := ParseFlags("phishsense", []string{"-verbose", "-threshold", "0.7", "scan-url", "http://example.com"}, io.Discard)
	require.NoError(t, err)

	assert.True(t, flags.Verbose)
	assert.Equal(t, 0.7, flags.Threshold)
	assert.Equal(t, []string{"scan-url", "http://example.com"}, rest)
}

func TestParseFlags_RejectsUnknownFlag(t *testing.T) {
	_, _, err := ParseFlags("phishsense", []string{"-bogus"}, io.Discard)
	assert.Error(t, err)
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := config.NewFromViper(config.NewEmptyViper())
	applyFlagOverrides(cfg, &CLIFlags{
		Threshold:   0.8,
		ModelDir:    "/opt/models",
		HistoryType: "memory",
	})

	assert.Equal(t, 0.8, cfg.GetAnalysis().Threshold)
	assert.Equal(t, "/opt/models", cfg.GetModel().Dir)
	assert.Equal(t, "memory", cfg.GetHistory().Type)
}

func TestBuildCLIContainer_ResolvesAnalysisService(t *testing.T) {
	dir := t.TempDir()
	flags := &CLIFlags{
		ConfigFile:  "",
		HistoryType: "jsonl",
		HistoryDir:  filepath.Join(dir, "history"),
		ModelDir:    filepath.Join(dir, "models"),
	}

	container, err := BuildCLIContainer(flags)
	require.NoError(t, err)

	err = container.Invoke(func(service *core.AnalysisService, store core.ScanStore) error {
		defer store.Close()
		env := service.AnalyzeURL(context.Background(), "http://example.com")
		assert.Equal(t, core.ScanTypeURL, env.Type)
		return nil
	})
	require.NoError(t, err)
}
