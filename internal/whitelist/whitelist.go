package whitelist

import (
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/normalize"
)

// Checker matches sender addresses against a list of trusted domains.
// A listed domain also covers its subdomains.
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new whitelist checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalized := make([]string, 0, len(domains))
	for _, domain := range domains {
		domain = strings.Trim(strings.ToLower(strings.TrimSpace(domain)), ".@")
		if domain != "" {
			normalized = append(normalized, domain)
		}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized whitelist checker", zap.Strings("domains", normalized))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// Domains returns the normalized domain list
func (c *Checker) Domains() []string {
	return c.domains
}

// IsWhitelisted checks if the sender's domain is in the whitelist. from may
// be a bare address or a `Name <addr>` header value.
func (c *Checker) IsWhitelisted(from string) bool {
	if len(c.domains) == 0 {
		return false
	}

	addr := normalize.AddressString(from)
	if addr == nil {
		return false
	}
	domain := normalize.Domain(addr.Address)
	if domain == "" {
		return false
	}

	for _, listed := range c.domains {
		if domain == listed || strings.HasSuffix(domain, "."+listed) {
			if c.logger != nil {
				c.logger.Debug("Domain is whitelisted",
					zap.String("domain", domain),
					zap.String("email", from))
			}
			return true
		}
	}

	return false
}
