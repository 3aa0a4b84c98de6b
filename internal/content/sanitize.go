package content

import (
	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer restricts text element HTML to inline formatting and two text colors.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer builds the text element policy.
func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "u", "em", "br", "span", "p")
	p.AllowNoAttrs().OnElements("span", "p")
	p.AllowAttrs("style").OnElements("span", "p")
	// Values are lower-cased by bluemonday before the enum check.
	p.AllowStyles("color").MatchingEnum("red", "black").OnElements("span", "p")
	return &Sanitizer{policy: p}
}

// Sanitize strips everything outside the policy. It is idempotent.
func (s *Sanitizer) Sanitize(html string) string {
	return s.policy.Sanitize(html)
}
