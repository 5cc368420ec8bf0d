package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// AnalysisService is the core pipeline: extract, score, aggregate, and optionally persist
type AnalysisService struct {
	urlExtractor   URLExtractor
	emailExtractor EmailExtractor
	scorers        Scorers
	decoder        QRDecoder
	router         PayloadRouter
	store          ScanStore
	aggregator     *Aggregator
	clock          Clock
	session        *Session
	sanitizer      TextSanitizer
	logger         *zap.Logger
}

// NewAnalysisService creates a new analysis service.
// The URL scorer must consume feature vectors and the text scorer raw text.
func NewAnalysisService(
	urlExtractor URLExtractor,
	emailExtractor EmailExtractor,
	scorers Scorers,
	decoder QRDecoder,
	router PayloadRouter,
	store ScanStore,
	aggregator *Aggregator,
	clock Clock,
	session *Session,
	sanitizer TextSanitizer,
	logger *zap.Logger,
) (*AnalysisService, error) {
	if scorers.URL == nil || scorers.URL.Expects() != RepresentationVector {
		return nil, fmt.Errorf("url scorer must expect %s features: %w", RepresentationVector, ErrRepresentationMismatch)
	}
	if scorers.Text == nil || scorers.Text.Expects() != RepresentationText {
		return nil, fmt.Errorf("text scorer must expect %s features: %w", RepresentationText, ErrRepresentationMismatch)
	}

	return &AnalysisService{
		urlExtractor:   urlExtractor,
		emailExtractor: emailExtractor,
		scorers:        scorers,
		decoder:        decoder,
		router:         router,
		store:          store,
		aggregator:     aggregator,
		clock:          clock,
		session:        session,
		sanitizer:      sanitizer,
		logger:         logger,
	}, nil
}

// SessionID returns the process-wide default session identifier
func (s *AnalysisService) SessionID() string {
	return s.session.ID()
}

// AnalyzeURL scans a single URL
func (s *AnalysisService) AnalyzeURL(ctx context.Context, rawURL string) *Envelope {
	rawURL = s.sanitizer.SanitizeUTF8(rawURL)
	verdict, score, indicators := s.evaluateURL(rawURL)

	env := s.envelope(ScanTypeURL, ScanInput{URL: rawURL}, verdict, score, indicators)
	s.logger.Debug("Analyzed URL",
		zap.String("url", rawURL),
		zap.Stringer("verdict", verdict),
		zap.Float64("score", score))
	return env
}

// AnalyzeEmail scans an email; missing fields are treated as empty
func (s *AnalysisService) AnalyzeEmail(ctx context.Context, subject, body, sender string) *Envelope {
	subject = s.sanitizer.SanitizeUTF8(subject)
	body = s.sanitizer.SanitizeUTF8(body)
	sender = s.sanitizer.SanitizeUTF8(sender)

	verdict, score, indicators := s.evaluateEmail(subject, body, sender)

	env := s.envelope(ScanTypeEmail, ScanInput{Subject: subject, Body: body, Sender: sender}, verdict, score, indicators)
	s.logger.Debug("Analyzed email",
		zap.String("sender", sender),
		zap.Int("num_urls", indicators.Email.NumURLs),
		zap.Int("phrase_hits", indicators.Email.PhishingPhraseHits),
		zap.Stringer("verdict", verdict),
		zap.Float64("score", score))
	return env
}

// AnalyzeQRImage decodes a QR image and scans its payload.
// Decode failures never escape: they produce an unknown verdict.
func (s *AnalysisService) AnalyzeQRImage(ctx context.Context, image io.Reader) *Envelope {
	payload, err := s.decoder.Decode(image)
	if err != nil {
		reason := ErrDecodeFailed
		if errors.Is(err, ErrNoPayload) {
			reason = ErrNoPayload
		}
		s.logger.Debug("QR decode produced no payload", zap.Error(err))
		return s.unknownQR(reason)
	}
	return s.AnalyzeQRPayload(ctx, payload)
}

// AnalyzeQRPayload scans an already decoded QR payload
func (s *AnalysisService) AnalyzeQRPayload(ctx context.Context, payload string) *Envelope {
	payload = s.sanitizer.SanitizeUTF8(payload)

	var (
		verdict    Verdict
		score      float64
		indicators Indicators
	)
	kind := s.router.Route(payload)
	switch kind {
	case PayloadURL:
		verdict, score, indicators = s.evaluateURL(strings.TrimSpace(payload))
	case PayloadText:
		verdict, score, indicators = s.evaluateEmail("", payload, "")
	default:
		return s.unknownQR(ErrNoPayload)
	}

	indicators.QR = &QRIndicators{Decoded: true, PayloadType: kind}
	env := s.envelope(ScanTypeQR, ScanInput{Payload: payload}, verdict, score, indicators)
	s.logger.Debug("Analyzed QR payload",
		zap.String("payload_type", string(kind)),
		zap.Stringer("verdict", verdict),
		zap.Float64("score", score))
	return env
}

// LogScan appends env to the history under sessionID, or the process session when empty.
// env.SessionID is updated to the session used.
func (s *AnalysisService) LogScan(ctx context.Context, env *Envelope, sessionID string) (string, error) {
	sid := s.session.Resolve(sessionID)
	env.SessionID = sid
	if err := s.store.Append(ctx, env); err != nil {
		return sid, fmt.Errorf("failed to log scan: %w", err)
	}
	return sid, nil
}

// LogScanBestEffort logs env and reports failures only through the logger
func (s *AnalysisService) LogScanBestEffort(ctx context.Context, env *Envelope, sessionID string) string {
	sid, err := s.LogScan(ctx, env, sessionID)
	if err != nil {
		s.logger.Error("Failed to persist scan", zap.Error(err), zap.String("session_id", sid))
	}
	return sid
}

// RecentScans returns the last limit scans in append order
func (s *AnalysisService) RecentScans(ctx context.Context, limit int) ([]*Envelope, error) {
	return s.store.Recent(ctx, limit)
}

// SessionScans returns up to limit of the newest scans for a session, oldest first
func (s *AnalysisService) SessionScans(ctx context.Context, sessionID string, limit int) ([]*Envelope, error) {
	return s.store.BySession(ctx, s.session.Resolve(sessionID), limit)
}

func (s *AnalysisService) evaluateURL(rawURL string) (Verdict, float64, Indicators) {
	features, err := s.urlExtractor.Extract(rawURL)
	if err != nil {
		return VerdictInvalid, 0.0, Indicators{Error: err.Error()}
	}

	score := s.scorers.URL.Score(features)
	return s.aggregator.URLVerdict(score.Probability), score.Probability, Indicators{
		URL:           &features,
		ModelFallback: score.Fallback,
	}
}

func (s *AnalysisService) evaluateEmail(subject, body, sender string) (Verdict, float64, Indicators) {
	features := s.emailExtractor.Extract(subject, body, sender)

	var (
		results  []URLResult
		scores   []float64
		fallback bool
	)
	for i, uf := range features.URLFeatures {
		score := s.scorers.URL.Score(uf)
		fallback = fallback || score.Fallback
		scores = append(scores, score.Probability)
		results = append(results, URLResult{
			URL:      features.URLs[i],
			Score:    score.Probability,
			Verdict:  s.aggregator.URLVerdict(score.Probability),
			Features: uf,
		})
	}

	decision := s.aggregator.EmailVerdict(scores, features.PhishingPhraseHits)
	textScore := s.scorers.Text.Score(features)

	var matched []string
	if len(features.MatchedPhrases) > 0 {
		matched = features.MatchedPhrases
	}

	return decision.Verdict, decision.WorstScore, Indicators{
		Email: &EmailIndicators{
			SenderDomain:         features.SenderDomain,
			NumURLs:              features.NumURLs,
			URLResults:           results,
			SuspiciousByURLs:     decision.SuspiciousByURLs,
			PhishingPhraseHits:   features.PhishingPhraseHits,
			MatchedPhrases:       matched,
			SuspiciousByPhrases:  decision.SuspiciousByPhrases,
			PhraseDictionarySize: features.PhraseDictionarySize,
			TextScore:            textScore.Probability,
			TextModelFallback:    textScore.Fallback,
		},
		ModelFallback: fallback,
	}
}

func (s *AnalysisService) unknownQR(reason error) *Envelope {
	return s.envelope(ScanTypeQR, ScanInput{}, VerdictUnknown, 0.0, Indicators{
		QR:    &QRIndicators{Decoded: false, PayloadType: PayloadNone},
		Error: reason.Error(),
	})
}

func (s *AnalysisService) envelope(kind ScanType, input ScanInput, verdict Verdict, score float64, indicators Indicators) *Envelope {
	return &Envelope{
		Type:       kind,
		Input:      input,
		Verdict:    verdict,
		Score:      score,
		Indicators: indicators,
		Timestamp:  s.clock.Now(),
	}
}
