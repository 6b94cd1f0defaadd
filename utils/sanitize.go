package utils

import "github.com/microcosm-cc/bluemonday"

var (
	// bodies may keep the usual user generated markup
	bodyPolicy = bluemonday.UGCPolicy()
	// subjects are rendered as plain text
	plainPolicy = bluemonday.StrictPolicy()
)

// Sanitize cleans question and answer bodies to prevent XSS attacks.
func Sanitize(input string) string {
	return bodyPolicy.Sanitize(input)
}

// SanitizePlain strips every tag, for single line fields such as a subject.
func SanitizePlain(input string) string {
	return plainPolicy.Sanitize(input)
}
