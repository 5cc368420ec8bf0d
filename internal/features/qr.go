package features

import (
	"regexp"
	"strings"

	"github.com/mikey/phishsense/internal/core"
)

var urlPayload = regexp.MustCompile(`(?i)^https?://`)

// IsURLPayload reports whether a decoded QR payload should be scanned as a URL
func IsURLPayload(payload string) bool {
	return urlPayload.MatchString(strings.TrimSpace(payload))
}

// PayloadRouter routes decoded QR payloads to the URL or email path
type PayloadRouter struct{}

// NewPayloadRouter creates a payload router
func NewPayloadRouter() *PayloadRouter {
	return &PayloadRouter{}
}

// Route implements core.PayloadRouter
func (PayloadRouter) Route(payload string) core.PayloadType {
	switch {
	case strings.TrimSpace(payload) == "":
		return core.PayloadNone
	case IsURLPayload(payload):
		return core.PayloadURL
	default:
		return core.PayloadText
	}
}
