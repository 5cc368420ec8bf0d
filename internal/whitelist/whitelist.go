package whitelist

import (
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/features"
)

// Checker decides whether mail from a sender skips phishing analysis
type Checker struct {
	domains map[string]bool
	logger  *zap.Logger
}

// NewChecker creates a checker for the given trusted sender domains
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	set := make(map[string]bool, len(domains))
	for _, domain := range domains {
		domain = strings.Trim(strings.ToLower(strings.TrimSpace(domain)), ".")
		if domain != "" {
			set[domain] = true
		}
	}

	if len(set) > 0 && logger != nil {
		logger.Info("Initialized trusted domain checker", zap.Int("domains", len(set)))
	}

	return &Checker{
		domains: set,
		logger:  logger,
	}
}

// IsTrusted reports whether the sender's domain, or any parent of it, is trusted
func (c *Checker) IsTrusted(sender string) bool {
	if len(c.domains) == 0 {
		return false
	}

	domain := features.SenderDomain(sender)
	for domain != "" {
		if c.domains[domain] {
			if c.logger != nil {
				c.logger.Debug("Sender domain is trusted",
					zap.String("domain", domain),
					zap.String("sender", sender))
			}
			return true
		}
		i := strings.IndexByte(domain, '.')
		if i < 0 {
			break
		}
		domain = domain[i+1:]
	}
	return false
}
