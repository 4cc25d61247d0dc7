package plan

import (
	"github.com/oscap-tools/hardenplan/internal/canonical"
	"github.com/oscap-tools/hardenplan/internal/observability/receipt"
)

// Redacted returns a copy with password values replaced by a marker.
func (p *Plan) Redacted() *Plan {
	c := p.Clone()
	if c.Users.RootPassword != "" {
		c.Users.RootPassword = receipt.RedactedValue
	}
	if c.Bootloader.Password != "" {
		c.Bootloader.Password = receipt.RedactedValue
	}
	return c
}

// Fingerprint is the canonical digest of the redacted plan: it shows
// whether a password is set but nothing about its value.
func (p *Plan) Fingerprint() (string, error) {
	return canonical.Digest(p.Redacted())
}
