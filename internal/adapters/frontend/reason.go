package frontend

import (
	"fmt"
	"strings"

	"github.com/mikey/phishsense/internal/core"
)

// Reason summarizes the indicators behind a verdict on one line
func Reason(env *core.Envelope) string {
	ind := env.Indicators
	var parts []string

	if ind.Error != "" {
		parts = append(parts, ind.Error)
	}
	if ind.URL != nil {
		if ind.URL.UsesIP {
			parts = append(parts, "host is an IP address")
		}
		if ind.URL.HasAtSymbol {
			parts = append(parts, "contains @")
		}
		if ind.URL.IsShortener {
			parts = append(parts, "link shortener")
		}
		if ind.URL.SuspiciousWordCount > 0 {
			parts = append(parts, fmt.Sprintf("%d suspicious words", ind.URL.SuspiciousWordCount))
		}
	}
	if ind.Email != nil {
		if ind.Email.SuspiciousByURLs {
			parts = append(parts, fmt.Sprintf("suspicious link (score %.2f)", env.Score))
		}
		if ind.Email.SuspiciousByPhrases {
			parts = append(parts, "phishing phrases: "+strings.Join(ind.Email.MatchedPhrases, ", "))
		}
	}
	if ind.QR != nil && ind.QR.Decoded {
		parts = append(parts, "QR payload type "+string(ind.QR.PayloadType))
	}
	if ind.ModelFallback {
		parts = append(parts, "model unavailable, fallback score")
	}

	if len(parts) == 0 {
		return "no indicators"
	}
	return strings.Join(parts, "; ")
}
