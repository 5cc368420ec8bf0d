package core

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeURLExtractor struct{}

func (fakeURLExtractor) Extract(rawURL string) (URLFeatures, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return URLFeatures{}, ErrEmptyInput
	}
	return URLFeatures{
		URLLength:     len(rawURL),
		HasHTTPS:      strings.HasPrefix(rawURL, "https://"),
		NormalizedURL: rawURL,
	}, nil
}

var fakeURLPattern = regexp.MustCompile(`https?://\S+`)

type fakeEmailExtractor struct {
	phrases []string
}

func (f fakeEmailExtractor) Extract(subject, body, sender string) EmailFeatures {
	text := subject + "\n" + body
	urls := fakeURLPattern.FindAllString(text, -1)
	features := EmailFeatures{Subject: subject, Body: body, Sender: sender, URLs: urls, NumURLs: len(urls)}
	for _, u := range urls {
		uf, _ := fakeURLExtractor{}.Extract(u)
		features.URLFeatures = append(features.URLFeatures, uf)
	}
	for _, p := range f.phrases {
		if strings.Contains(strings.ToLower(text), p) {
			features.PhishingPhraseHits++
			features.MatchedPhrases = append(features.MatchedPhrases, p)
		}
	}
	features.PhraseDictionarySize = len(f.phrases)
	return features
}

// tableScorer scores vectors by looking up the normalized URL
type tableScorer struct {
	repr     Representation
	scores   map[string]float64
	fallback bool
}

func (s tableScorer) Expects() Representation { return s.repr }

func (s tableScorer) Score(features Features) Score {
	if s.fallback {
		return Score{Probability: 0.5, Fallback: true}
	}
	if uf, ok := features.(URLFeatures); ok {
		return Score{Probability: s.scores[uf.NormalizedURL]}
	}
	return Score{Probability: 0.25}
}

type fakeDecoder struct {
	text string
	err  error
}

func (d fakeDecoder) Decode(r io.Reader) (string, error) {
	return d.text, d.err
}

type fakeRouter struct{}

func (fakeRouter) Route(payload string) PayloadType {
	p := strings.TrimSpace(payload)
	switch {
	case p == "":
		return PayloadNone
	case strings.HasPrefix(p, "http://"), strings.HasPrefix(p, "https://"):
		return PayloadURL
	default:
		return PayloadText
	}
}

type passthroughSanitizer struct{}

func (passthroughSanitizer) SanitizeUTF8(text string) string { return text }

type sliceStore struct {
	mu      sync.Mutex
	entries []*Envelope
	err     error
}

func (s *sliceStore) Append(ctx context.Context, env *Envelope) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, env)
	return nil
}

func (s *sliceStore) Recent(ctx context.Context, limit int) ([]*Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.entries) {
		limit = len(s.entries)
	}
	return s.entries[len(s.entries)-limit:], nil
}

func (s *sliceStore) BySession(ctx context.Context, sessionID string, limit int) ([]*Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Envelope
	for _, e := range s.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	if limit < len(out) {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *sliceStore) Close() error { return nil }

type serviceFixture struct {
	scores   map[string]float64
	fallback bool
	decoder  fakeDecoder
	store    *sliceStore
}

func newTestService(t *testing.T, fx serviceFixture) *AnalysisService {
	t.Helper()
	if fx.store == nil {
		fx.store = &sliceStore{}
	}
	session, err := NewProcessSession("process-session")
	require.NoError(t, err)

	svc, err := NewAnalysisService(
		fakeURLExtractor{},
		fakeEmailExtractor{phrases: []string{"verify your account"}},
		Scorers{
			URL:  tableScorer{repr: RepresentationVector, scores: fx.scores, fallback: fx.fallback},
			Text: tableScorer{repr: RepresentationText},
		},
		fx.decoder,
		fakeRouter{},
		fx.store,
		NewAggregator(0.5),
		NewMonotonicClock(),
		session,
		passthroughSanitizer{},
		zap.NewNop(),
	)
	require.NoError(t, err)
	return svc
}

func TestNewAnalysisService_RejectsMismatchedScorers(t *testing.T) {
	session, _ := NewProcessSession("s")
	_, err := NewAnalysisService(
		fakeURLExtractor{}, fakeEmailExtractor{},
		Scorers{URL: tableScorer{repr: RepresentationText}, Text: tableScorer{repr: RepresentationText}},
		fakeDecoder{}, fakeRouter{}, &sliceStore{}, NewAggregator(0.5), NewMonotonicClock(), session,
		passthroughSanitizer{}, zap.NewNop(),
	)
	assert.ErrorIs(t, err, ErrRepresentationMismatch)
}

func TestAnalyzeURL(t *testing.T) {
	svc := newTestService(t, serviceFixture{scores: map[string]float64{
		"http://evil.test/login": 0.93,
		"https://good.test":      0.04,
	}})
	ctx := context.Background()

	bad := svc.AnalyzeURL(ctx, "http://evil.test/login")
	assert.Equal(t, ScanTypeURL, bad.Type)
	assert.Equal(t, VerdictSuspicious, bad.Verdict)
	assert.Equal(t, 0.93, bad.Score)
	require.NotNil(t, bad.Indicators.URL)

	good := svc.AnalyzeURL(ctx, "https://good.test")
	assert.Equal(t, VerdictSafe, good.Verdict)
	assert.False(t, good.Timestamp.Before(bad.Timestamp))
}

func TestAnalyzeURL_EmptyIsInvalid(t *testing.T) {
	svc := newTestService(t, serviceFixture{fallback: true})

	for _, in := range []string{"", "   ", "\t\n"} {
		env := svc.AnalyzeURL(context.Background(), in)
		assert.Equal(t, VerdictInvalid, env.Verdict)
		assert.Equal(t, 0.0, env.Score)
		assert.NotEmpty(t, env.Indicators.Error)
	}
}

func TestAnalyzeURL_ModelFallback(t *testing.T) {
	svc := newTestService(t, serviceFixture{fallback: true})

	env := svc.AnalyzeURL(context.Background(), "http://test.com")
	assert.Equal(t, 0.5, env.Score)
	assert.Equal(t, VerdictSafe, env.Verdict)
	assert.True(t, env.Indicators.ModelFallback)
}

func TestAnalyzeEmail(t *testing.T) {
	svc := newTestService(t, serviceFixture{scores: map[string]float64{
		"http://a.test": 0.2,
		"http://b.test": 0.8,
	}})
	ctx := context.Background()

	t.Run("no urls no phrases", func(t *testing.T) {
		env := svc.AnalyzeEmail(ctx, "Lunch", "see you at noon", "bob@example.com")
		assert.Equal(t, VerdictSafe, env.Verdict)
		assert.Equal(t, 0.0, env.Score)
		assert.Nil(t, env.Indicators.Email.URLResults)
	})

	t.Run("worst url wins", func(t *testing.T) {
		env := svc.AnalyzeEmail(ctx, "", "http://a.test and http://b.test", "")
		assert.Equal(t, VerdictSuspicious, env.Verdict)
		assert.Equal(t, 0.8, env.Score)
		require.Len(t, env.Indicators.Email.URLResults, 2)
		assert.Equal(t, VerdictSafe, env.Indicators.Email.URLResults[0].Verdict)
		assert.Equal(t, VerdictSuspicious, env.Indicators.Email.URLResults[1].Verdict)
		assert.True(t, env.Indicators.Email.SuspiciousByURLs)
	})

	t.Run("phrases flip verdict but not score", func(t *testing.T) {
		env := svc.AnalyzeEmail(ctx, "Please verify your account", "http://a.test", "")
		assert.Equal(t, VerdictSuspicious, env.Verdict)
		assert.Equal(t, 0.2, env.Score)
		assert.True(t, env.Indicators.Email.SuspiciousByPhrases)
		assert.False(t, env.Indicators.Email.SuspiciousByURLs)
	})

	t.Run("text score is informational", func(t *testing.T) {
		env := svc.AnalyzeEmail(ctx, "hi", "plain", "")
		assert.Equal(t, 0.25, env.Indicators.Email.TextScore)
		assert.Equal(t, 0.0, env.Score)
	})
}

func TestAnalyzeQRImage(t *testing.T) {
	ctx := context.Background()
	scores := map[string]float64{"https://pay.test/verify": 0.77}

	t.Run("no payload", func(t *testing.T) {
		svc := newTestService(t, serviceFixture{decoder: fakeDecoder{err: ErrNoPayload}})
		env := svc.AnalyzeQRImage(ctx, strings.NewReader("png"))
		assert.Equal(t, ScanTypeQR, env.Type)
		assert.Equal(t, VerdictUnknown, env.Verdict)
		assert.Equal(t, 0.0, env.Score)
		assert.Equal(t, ErrNoPayload.Error(), env.Indicators.Error)
	})

	t.Run("corrupt image", func(t *testing.T) {
		svc := newTestService(t, serviceFixture{decoder: fakeDecoder{err: errors.New("bad png")}})
		env := svc.AnalyzeQRImage(ctx, strings.NewReader("junk"))
		assert.Equal(t, VerdictUnknown, env.Verdict)
		assert.Equal(t, ErrDecodeFailed.Error(), env.Indicators.Error)
	})

	t.Run("url payload matches url path", func(t *testing.T) {
		svc := newTestService(t, serviceFixture{scores: scores, decoder: fakeDecoder{text: "https://pay.test/verify"}})
		qr := svc.AnalyzeQRImage(ctx, strings.NewReader("png"))
		direct := svc.AnalyzeURL(ctx, "https://pay.test/verify")

		assert.Equal(t, direct.Verdict, qr.Verdict)
		assert.Equal(t, direct.Score, qr.Score)
		assert.Equal(t, PayloadURL, qr.Indicators.QR.PayloadType)
		assert.Equal(t, "https://pay.test/verify", qr.Input.Payload)
	})

	t.Run("text payload goes through email path", func(t *testing.T) {
		svc := newTestService(t, serviceFixture{scores: scores, decoder: fakeDecoder{text: "verify your account at https://pay.test/verify"}})
		env := svc.AnalyzeQRImage(ctx, strings.NewReader("png"))
		assert.Equal(t, VerdictSuspicious, env.Verdict)
		assert.Equal(t, 0.77, env.Score)
		require.NotNil(t, env.Indicators.Email)
		assert.Equal(t, PayloadText, env.Indicators.QR.PayloadType)
	})
}

func TestLogScan_SessionScoping(t *testing.T) {
	store := &sliceStore{}
	svc := newTestService(t, serviceFixture{store: store})
	ctx := context.Background()

	first := svc.AnalyzeURL(ctx, "http://one.test")
	sid, err := svc.LogScan(ctx, first, "")
	require.NoError(t, err)
	assert.Equal(t, "process-session", sid)
	assert.Equal(t, sid, first.SessionID)

	second := svc.AnalyzeURL(ctx, "http://two.test")
	sid, err = svc.LogScan(ctx, second, "caller")
	require.NoError(t, err)
	assert.Equal(t, "caller", sid)

	mine, err := svc.SessionScans(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "http://one.test", mine[0].Input.URL)

	recent, err := svc.RecentScans(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestLogScan_StoreFailureIsReported(t *testing.T) {
	svc := newTestService(t, serviceFixture{store: &sliceStore{err: errors.New("disk full")}})
	env := svc.AnalyzeURL(context.Background(), "http://x.test")

	_, err := svc.LogScan(context.Background(), env, "")
	assert.Error(t, err)

	sid := svc.LogScanBestEffort(context.Background(), env, "")
	assert.Equal(t, "process-session", sid)
	assert.Equal(t, VerdictSafe, env.Verdict)
}
