package core

import "errors"

var (
	// ErrEmptyInput is returned when an input is empty after trimming
	ErrEmptyInput = errors.New("empty input")
	// ErrNoPayload is returned when a QR image contains no decodable code
	ErrNoPayload = errors.New("no QR code found")
	// ErrDecodeFailed is returned when a QR image cannot be read
	ErrDecodeFailed = errors.New("QR image could not be decoded")
	// ErrModelUnavailable is returned when model artifacts cannot be loaded
	ErrModelUnavailable = errors.New("model artifacts unavailable")
	// ErrRepresentationMismatch is returned when a scorer expects a different feature representation
	ErrRepresentationMismatch = errors.New("scorer representation mismatch")
	// ErrUnknownFeature is returned when an artifact names a feature outside the schema
	ErrUnknownFeature = errors.New("unknown feature key")
)
