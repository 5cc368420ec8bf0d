package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ScanType identifies the kind of input a scan was performed on
type ScanType string

const (
	ScanTypeURL   ScanType = "url"
	ScanTypeEmail ScanType = "email"
	ScanTypeQR    ScanType = "qr"
)

// Verdict is the final categorical outcome of a scan
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictSafe
	VerdictSuspicious
	VerdictInvalid
)

func (v Verdict) String() string {
	switch v {
	case VerdictSafe:
		return "safe"
	case VerdictSuspicious:
		return "suspicious"
	case VerdictInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// ParseVerdict converts the textual form of a verdict back into a Verdict
func ParseVerdict(s string) (Verdict, error) {
	switch strings.ToLower(s) {
	case "safe":
		return VerdictSafe, nil
	case "suspicious":
		return VerdictSuspicious, nil
	case "invalid":
		return VerdictInvalid, nil
	case "unknown":
		return VerdictUnknown, nil
	default:
		return VerdictUnknown, fmt.Errorf("unrecognized verdict %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (v *Verdict) UnmarshalText(text []byte) error {
	parsed, err := ParseVerdict(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// URLFeatureSchemaVersion is bumped whenever URLFeatureKeys changes
const URLFeatureSchemaVersion = 1

// URLFeatureKeys is the closed, ordered set of URL features fed to the model
var URLFeatureKeys = []string{
	"url_length",
	"num_dots",
	"num_digits",
	"has_at_symbol",
	"has_https",
	"suspicious_word_count",
	"is_shortener",
	"uses_ip",
}

// IsURLFeatureKey reports whether key belongs to the URL feature schema
func IsURLFeatureKey(key string) bool {
	for _, k := range URLFeatureKeys {
		if k == key {
			return true
		}
	}
	return false
}

// URLFeatures is the feature record extracted from a single URL.
// Host, Path, Scheme and NormalizedURL are display fields and are not part of Vector.
type URLFeatures struct {
	URLLength           int    `json:"url_length"`
	NumDots             int    `json:"num_dots"`
	NumDigits           int    `json:"num_digits"`
	HasAtSymbol         bool   `json:"has_at_symbol"`
	HasHTTPS            bool   `json:"has_https"`
	SuspiciousWordCount int    `json:"suspicious_word_count"`
	IsShortener         bool   `json:"is_shortener"`
	UsesIP              bool   `json:"uses_ip"`
	Host                string `json:"host"`
	Path                string `json:"path"`
	Scheme              string `json:"scheme"`
	NormalizedURL       string `json:"normalized_url"`
}

// Representation implements Features
func (f URLFeatures) Representation() Representation {
	return RepresentationVector
}

// Vector returns the numeric model input keyed by URLFeatureKeys
func (f URLFeatures) Vector() map[string]float64 {
	return map[string]float64{
		"url_length":            float64(f.URLLength),
		"num_dots":              float64(f.NumDots),
		"num_digits":            float64(f.NumDigits),
		"has_at_symbol":         boolToFloat(f.HasAtSymbol),
		"has_https":             boolToFloat(f.HasHTTPS),
		"suspicious_word_count": float64(f.SuspiciousWordCount),
		"is_shortener":          boolToFloat(f.IsShortener),
		"uses_ip":               boolToFloat(f.UsesIP),
	}
}

// EmailFeatures is the feature record extracted from an email message
type EmailFeatures struct {
	Subject              string        `json:"subject"`
	Body                 string        `json:"body"`
	Sender               string        `json:"sender"`
	SenderDomain         string        `json:"sender_domain"`
	URLs                 []string      `json:"urls"`
	URLFeatures          []URLFeatures `json:"url_features"`
	NumURLs              int           `json:"num_urls"`
	PhishingPhraseHits   int           `json:"phishing_phrase_hits"`
	MatchedPhrases       []string      `json:"matched_phrases"`
	PhraseDictionarySize int           `json:"phrase_dictionary_size"`
}

// Representation implements Features
func (f EmailFeatures) Representation() Representation {
	return RepresentationText
}

// Text returns the raw-text model input
func (f EmailFeatures) Text() string {
	return strings.TrimSpace(f.Subject + " " + f.Body + " " + f.Sender)
}

// Score is the output of a Scorer
type Score struct {
	Probability float64
	Fallback    bool
}

// ScanInput is the caller-supplied input echoed into an Envelope
type ScanInput struct {
	URL     string `json:"url,omitempty"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
	Sender  string `json:"sender,omitempty"`
	Payload string `json:"payload,omitempty"`
}

// Summary returns a short single-line description of the input
func (in ScanInput) Summary() string {
	switch {
	case in.URL != "":
		return in.URL
	case in.Subject != "":
		return in.Subject
	case in.Payload != "":
		return in.Payload
	case in.Sender != "":
		return in.Sender
	default:
		return in.Body
	}
}

// URLResult is the per-URL sub-result listed inside an email scan
type URLResult struct {
	URL      string      `json:"url"`
	Score    float64     `json:"score"`
	Verdict  Verdict     `json:"verdict"`
	Features URLFeatures `json:"features"`
}

// EmailIndicators summarizes why an email received its verdict
type EmailIndicators struct {
	SenderDomain         string      `json:"sender_domain"`
	NumURLs              int         `json:"num_urls"`
	URLResults           []URLResult `json:"url_results,omitempty"`
	SuspiciousByURLs     bool        `json:"suspicious_by_urls"`
	PhishingPhraseHits   int         `json:"phishing_phrase_hits"`
	MatchedPhrases       []string    `json:"matched_phrases,omitempty"`
	SuspiciousByPhrases  bool        `json:"suspicious_by_phrases"`
	PhraseDictionarySize int         `json:"phrase_dictionary_size"`
	// TextScore is informational only and never feeds the verdict or the score
	TextScore         float64 `json:"text_score"`
	TextModelFallback bool    `json:"text_model_fallback,omitempty"`
}

// QRIndicators describes how a QR payload was routed
type QRIndicators struct {
	Decoded     bool        `json:"decoded"`
	PayloadType PayloadType `json:"payload_type"`
}

// Indicators is the bundle of evidence attached to an Envelope
type Indicators struct {
	URL           *URLFeatures     `json:"url,omitempty"`
	Email         *EmailIndicators `json:"email,omitempty"`
	QR            *QRIndicators    `json:"qr,omitempty"`
	ModelFallback bool             `json:"model_fallback,omitempty"`
	Error         string           `json:"error,omitempty"`
}

// Envelope is the result returned by every analysis call and persisted to history
type Envelope struct {
	Type       ScanType   `json:"type"`
	Input      ScanInput  `json:"input"`
	Verdict    Verdict    `json:"verdict"`
	Score      float64    `json:"score"`
	Indicators Indicators `json:"indicators"`
	Timestamp  time.Time  `json:"timestamp"`
	SessionID  string     `json:"session_id,omitempty"`
}

// MarshalRecord encodes an envelope as a single newline-free JSON record
func MarshalRecord(env *Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scan record: %w", err)
	}
	return data, nil
}

// UnmarshalRecord decodes a JSON record written by MarshalRecord
func UnmarshalRecord(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode scan record: %w", err)
	}
	return &env, nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
