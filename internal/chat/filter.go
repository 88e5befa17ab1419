package chat

import "regexp"

// Patterns that look like attempts to move the deal off-platform. Kept
// deliberately loose; this is a deterrent, not a guarantee.
var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe = regexp.MustCompile(`(\+?\d[\d\s().\-]{6,}\d)`)
	urlRe   = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
)

const redactedPlaceholder = "[oculto]"

// RedactContacts masks emails, phone numbers and links in a message and
// reports whether anything was masked.
func RedactContacts(text string) (string, bool) {
	redacted := false
	for _, re := range []*regexp.Regexp{emailRe, urlRe, phoneRe} {
		if re.MatchString(text) {
			text = re.ReplaceAllString(text, redactedPlaceholder)
			redacted = true
		}
	}
	return text, redacted
}
