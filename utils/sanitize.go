package utils

import "github.com/microcosm-cc/bluemonday"

var (
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

// Sanitize cleans user-generated HTML, keeping safe markup.
func Sanitize(input string) string {
	return ugcPolicy.Sanitize(input)
}

// SanitizeStrict strips all markup. Used for titles and tag names, which
// are rendered as plain text.
func SanitizeStrict(input string) string {
	return strictPolicy.Sanitize(input)
}
