package features

import (
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mikey/phishsense/internal/core"
)

var (
	// schemePrefix matches an explicit scheme such as http:// or ftp://
	schemePrefix = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]{0,31}://`)

	// ipv4Host matches a strict dotted quad; octet range is checked separately
	ipv4Host = regexp.MustCompile(`^[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}$`)
)

// URLExtractor computes lexical features for a single URL.
// It never touches the network and is safe on arbitrary input.
type URLExtractor struct {
	lexicon *Lexicon
}

// NewURLExtractor creates a URL extractor using the given lexicon
func NewURLExtractor(lexicon *Lexicon) *URLExtractor {
	return &URLExtractor{lexicon: lexicon}
}

// Normalize trims rawURL and prepends http:// when no scheme is present
func Normalize(rawURL string) string {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return ""
	}
	if !schemePrefix.MatchString(u) {
		u = "http://" + u
	}
	return u
}

// Extract implements core.URLExtractor
func (e *URLExtractor) Extract(rawURL string) (core.URLFeatures, error) {
	normalized := Normalize(rawURL)
	if normalized == "" {
		return core.URLFeatures{}, core.ErrEmptyInput
	}

	scheme, host, path := splitURL(normalized)
	lowered := strings.ToLower(normalized)

	features := core.URLFeatures{
		URLLength:     utf8.RuneCountInString(lowered),
		NumDots:       strings.Count(host, "."),
		NumDigits:     countDigits(host) + countDigits(path),
		HasAtSymbol:   strings.Contains(normalized, "@"),
		HasHTTPS:      scheme == "https",
		IsShortener:   e.lexicon.Shorteners[host],
		UsesIP:        isIPv4(host),
		Host:          host,
		Path:          path,
		Scheme:        scheme,
		NormalizedURL: normalized,
	}
	for _, word := range e.lexicon.SuspiciousWords {
		if strings.Contains(lowered, word) {
			features.SuspiciousWordCount++
		}
	}
	return features, nil
}

// splitURL returns the lower-cased scheme, lower-cased port-less host and the
// path exactly as written. net/url decides the host when it accepts the input;
// anything it rejects is split by hand so that non-empty input always yields features.
func splitURL(normalized string) (scheme, host, path string) {
	scheme, host, path = lenientSplit(normalized)
	if u, err := url.Parse(normalized); err == nil {
		scheme = strings.ToLower(u.Scheme)
		host = strings.ToLower(u.Hostname())
	}
	if path == "" {
		path = "/"
	}
	return scheme, host, path
}

func lenientSplit(normalized string) (scheme, host, path string) {
	rest := normalized
	if i := strings.Index(rest, "://"); i >= 0 {
		scheme = strings.ToLower(rest[:i])
		rest = rest[i+3:]
	}

	authority := rest
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		authority = rest[:i]
		path = rest[i:]
		if j := strings.IndexAny(path, "?#"); j >= 0 {
			path = path[:j]
		}
	}
	if i := strings.LastIndex(authority, "@"); i >= 0 {
		authority = authority[i+1:]
	}
	if h, _, err := net.SplitHostPort(authority); err == nil {
		authority = h
	}
	host = strings.ToLower(strings.Trim(authority, "[]"))
	return scheme, host, path
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

func isIPv4(host string) bool {
	if !ipv4Host.MatchString(host) {
		return false
	}
	for _, octet := range strings.Split(host, ".") {
		v, err := strconv.Atoi(octet)
		if err != nil || v > 255 {
			return false
		}
	}
	return true
}
