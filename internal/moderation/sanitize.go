package moderation

import (
	"html"
	"strings"
)

// clean strips markup from user-supplied text and trims it. Entities that
// the policy escapes are decoded again because the result is stored as
// plain text, not HTML.
func (s *Service) clean(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
}
