package core

import (
	"context"
	"io"
)

// Representation names the form of model input a Scorer consumes
type Representation int

const (
	// RepresentationVector is a named numeric feature vector
	RepresentationVector Representation = iota
	// RepresentationText is raw text run through a text vectorizer
	RepresentationText
)

func (r Representation) String() string {
	if r == RepresentationText {
		return "text"
	}
	return "vector"
}

// Features is implemented by every feature record
type Features interface {
	Representation() Representation
}

// VectorFeatures exposes a named numeric feature vector
type VectorFeatures interface {
	Features
	Vector() map[string]float64
}

// TextFeatures exposes raw text for a text vectorizer
type TextFeatures interface {
	Features
	Text() string
}

// Scorer turns a feature record into a probability that the input is malicious
type Scorer interface {
	// Expects reports the feature representation the scorer consumes
	Expects() Representation

	// Score always returns a defined probability; Fallback is set when the model is unavailable
	Score(features Features) Score
}

// URLExtractor builds URL feature records
type URLExtractor interface {
	// Extract returns ErrEmptyInput for blank input
	Extract(rawURL string) (URLFeatures, error)
}

// EmailExtractor builds email feature records
type EmailExtractor interface {
	Extract(subject, body, sender string) EmailFeatures
}

// QRDecoder decodes a QR code image into its text payload
type QRDecoder interface {
	// Decode returns ErrNoPayload when no code is found and ErrDecodeFailed for unreadable images
	Decode(r io.Reader) (string, error)
}

// ScanStore is the append-only history of scan envelopes
type ScanStore interface {
	// Append persists one envelope; env.SessionID is already resolved
	Append(ctx context.Context, env *Envelope) error

	// Recent returns the last limit envelopes in append order
	Recent(ctx context.Context, limit int) ([]*Envelope, error)

	// BySession returns up to limit of the newest envelopes for sessionID, oldest first
	BySession(ctx context.Context, sessionID string, limit int) ([]*Envelope, error)

	// Close releases any resources held by the store
	Close() error
}

// PayloadType classifies a decoded QR payload
type PayloadType string

const (
	PayloadNone PayloadType = "none"
	PayloadURL  PayloadType = "url"
	PayloadText PayloadType = "text"
)

// PayloadRouter decides which analysis path a QR payload takes
type PayloadRouter interface {
	Route(payload string) PayloadType
}

// TextSanitizer cleans untrusted text before it is analyzed and persisted
type TextSanitizer interface {
	SanitizeUTF8(text string) string
}

// Scorers groups the scorer for each representation the pipeline uses
type Scorers struct {
	URL  Scorer
	Text Scorer
}
