package utils

import "github.com/microcosm-cc/bluemonday"

var (
	// ugcPolicy keeps the safe rich-text subset used by announcement
	// bodies and event descriptions.
	ugcPolicy = bluemonday.UGCPolicy()
	// strictPolicy strips all markup; used for titles, names and
	// comment text where no HTML is wanted at all.
	strictPolicy = bluemonday.StrictPolicy()
)

// Sanitize cleans rich-text HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return ugcPolicy.Sanitize(input)
}

// SanitizeStrict removes every HTML tag from input.
func SanitizeStrict(input string) string {
	return strictPolicy.Sanitize(input)
}
