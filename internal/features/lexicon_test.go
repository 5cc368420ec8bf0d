package features

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReadDataset(t *testing.T) {
	input := `phrase,label
# comment line
Verify Your Account,phishing
  click here ,phishing

"urgent, act now",phishing
verify your account,phishing
`
	got, err := ReadDataset(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"verify your account", "click here", "urgent, act now"}, got)
}

func TestLoadLexicon_FallsBackToBuiltins(t *testing.T) {
	dir := t.TempDir()
	emptyFile := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(emptyFile, nil, 0o644))

	lex := LoadLexicon(DatasetPaths{
		SuspiciousWords: filepath.Join(dir, "missing.txt"),
		Shorteners:      emptyFile,
		PhishingPhrases: "",
	}, zap.NewNop())

	assert.Equal(t, DefaultSuspiciousWords, lex.SuspiciousWords)
	assert.True(t, lex.Shorteners["bit.ly"])
	assert.Equal(t, DefaultPhishingPhrases, lex.PhishingPhrases)
}

func TestLoadLexicon_ReadsFiles(t *testing.T) {
	dir := t.TempDir()
	words := filepath.Join(dir, "words.txt")
	require.NoError(t, os.WriteFile(words, []byte("word\nLOGIN\nwallet\n"), 0o644))

	lex := LoadLexicon(DatasetPaths{SuspiciousWords: words}, zap.NewNop())
	assert.Equal(t, []string{"login", "wallet"}, lex.SuspiciousWords)
}

func TestPayloadRouter(t *testing.T) {
	r := NewPayloadRouter()
	assert.Equal(t, "url", string(r.Route("https://pay.test")))
	assert.Equal(t, "url", string(r.Route("  HTTP://pay.test ")))
	assert.Equal(t, "text", string(r.Route("WIFI:T:WPA;S:home;;")))
	assert.Equal(t, "text", string(r.Route("www.example.com")))
	assert.Equal(t, "none", string(r.Route("  ")))
}
