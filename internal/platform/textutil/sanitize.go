// Package textutil cleans free text that arrives from admins and the carrier before it is stored.
package textutil

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var plainTextPolicy = bluemonday.StrictPolicy()

// PlainText strips markup, collapses whitespace and truncates to limit runes. A non-positive
// limit keeps the whole value.
func PlainText(value string, limit int) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	cleaned := strings.Join(strings.Fields(plainTextPolicy.Sanitize(value)), " ")
	if limit > 0 && utf8.RuneCountInString(cleaned) > limit {
		runes := []rune(cleaned)
		cleaned = strings.TrimSpace(string(runes[:limit]))
	}
	return cleaned
}
