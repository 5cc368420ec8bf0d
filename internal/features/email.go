package features

import (
	"net/mail"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/mikey/phishsense/internal/core"
)

// embeddedURL matches scheme-anchored URLs up to the next whitespace
var embeddedURL = regexp.MustCompile(`(?i)https?://\S+`)

// EmailExtractor computes features for an email message
type EmailExtractor struct {
	lexicon *Lexicon
	urls    *URLExtractor
}

// NewEmailExtractor creates an email extractor; embedded URLs use urls for their features
func NewEmailExtractor(lexicon *Lexicon, urls *URLExtractor) *EmailExtractor {
	return &EmailExtractor{lexicon: lexicon, urls: urls}
}

// Extract implements core.EmailExtractor
func (e *EmailExtractor) Extract(subject, body, sender string) core.EmailFeatures {
	text := subject + "\n" + body
	urls := ExtractURLs(text)

	features := core.EmailFeatures{
		Subject:              subject,
		Body:                 body,
		Sender:               sender,
		SenderDomain:         SenderDomain(sender),
		URLs:                 urls,
		NumURLs:              len(urls),
		PhraseDictionarySize: len(e.lexicon.PhishingPhrases),
	}

	for _, u := range urls {
		uf, err := e.urls.Extract(u)
		if err != nil {
			// unreachable: the pattern never matches an empty string
			continue
		}
		features.URLFeatures = append(features.URLFeatures, uf)
	}

	folded := strings.ToLower(norm.NFKC.String(text))
	for _, phrase := range e.lexicon.PhishingPhrases {
		if strings.Contains(folded, phrase) {
			features.PhishingPhraseHits++
			features.MatchedPhrases = append(features.MatchedPhrases, phrase)
		}
	}

	return features
}

// ExtractURLs returns every http(s) URL in text, in order of appearance
func ExtractURLs(text string) []string {
	return embeddedURL.FindAllString(text, -1)
}

// SenderDomain returns the lower-cased text after the last @ of the sender
// address, or an empty string when there is none
func SenderDomain(sender string) string {
	address := strings.TrimSpace(sender)
	if parsed, err := mail.ParseAddress(address); err == nil {
		address = parsed.Address
	}
	i := strings.LastIndex(address, "@")
	if i < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(address[i+1:]))
}
