package features

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

// DefaultSuspiciousWords is used when no suspicious word dataset is available
var DefaultSuspiciousWords = []string{
	"login", "signin", "verify", "account", "update", "secure", "banking",
	"confirm", "password", "webscr", "ebayisapi", "paypal", "wallet",
	"suspend", "unlock", "bonus", "free", "lucky", "prize",
}

// DefaultShorteners is used when no shortener dataset is available
var DefaultShorteners = []string{
	"bit.ly", "tinyurl.com", "goo.gl", "t.co", "ow.ly", "is.gd", "buff.ly",
	"cutt.ly", "rebrand.ly", "shorturl.at", "tiny.cc", "rb.gy", "t.ly", "s.id",
}

// DefaultPhishingPhrases is used when no phishing phrase dataset is available
var DefaultPhishingPhrases = []string{
	"verify your account",
	"confirm your identity",
	"your account has been suspended",
	"your account will be closed",
	"unusual sign-in activity",
	"update your payment",
	"click here to login",
	"urgent action required",
	"you have won",
	"claim your prize",
	"reset your password",
	"limited time offer",
}

// datasetHeaders are first-record column names that are skipped
var datasetHeaders = map[string]bool{"word": true, "phrase": true, "domain": true, "term": true}

// Lexicon holds the configured word, shortener and phrase lists
type Lexicon struct {
	SuspiciousWords []string
	Shorteners      map[string]bool
	PhishingPhrases []string
}

// DatasetPaths names the dataset file for each list; empty paths use the builtin list
type DatasetPaths struct {
	SuspiciousWords string
	Shorteners      string
	PhishingPhrases string
}

// DefaultLexicon returns a lexicon built from the builtin lists
func DefaultLexicon() *Lexicon {
	return NewLexicon(DefaultSuspiciousWords, DefaultShorteners, DefaultPhishingPhrases)
}

// NewLexicon creates a lexicon from explicit lists
func NewLexicon(words, shorteners, phrases []string) *Lexicon {
	shortenerSet := make(map[string]bool, len(shorteners))
	for _, s := range normalizeList(shorteners) {
		shortenerSet[s] = true
	}
	return &Lexicon{
		SuspiciousWords: normalizeList(words),
		Shorteners:      shortenerSet,
		PhishingPhrases: normalizeList(phrases),
	}
}

// LoadLexicon reads each dataset, falling back to the builtin list when a file
// is missing, unreadable or empty
func LoadLexicon(paths DatasetPaths, logger *zap.Logger) *Lexicon {
	words := loadOrDefault("suspicious_words", paths.SuspiciousWords, DefaultSuspiciousWords, logger)
	shorteners := loadOrDefault("shorteners", paths.Shorteners, DefaultShorteners, logger)
	phrases := loadOrDefault("phishing_phrases", paths.PhishingPhrases, DefaultPhishingPhrases, logger)
	return NewLexicon(words, shorteners, phrases)
}

func loadOrDefault(name, path string, fallback []string, logger *zap.Logger) []string {
	if path == "" {
		return fallback
	}

	entries, err := readDatasetFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("Dataset not found, using builtin list",
			zap.String("dataset", name),
			zap.String("path", path))
		return fallback
	case err != nil:
		logger.Warn("Failed to read dataset, using builtin list",
			zap.String("dataset", name),
			zap.String("path", path),
			zap.Error(err))
		return fallback
	case len(entries) == 0:
		logger.Info("Dataset is empty, using builtin list",
			zap.String("dataset", name),
			zap.String("path", path))
		return fallback
	}

	logger.Info("Loaded dataset",
		zap.String("dataset", name),
		zap.String("path", path),
		zap.Int("entries", len(entries)))
	return entries
}

func readDatasetFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadDataset(f)
}

// ReadDataset parses delimited text with one word or phrase per record.
// Only the first column is used; blank records and # comments are skipped.
func ReadDataset(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	var entries []string
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse dataset: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		value := strings.ToLower(strings.TrimSpace(record[0]))
		if first {
			first = false
			if datasetHeaders[value] {
				continue
			}
		}
		if value != "" {
			entries = append(entries, value)
		}
	}
	return normalizeList(entries), nil
}

func normalizeList(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
