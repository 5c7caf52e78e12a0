package api

import (
	"strings"
	"unicode"
)

// NormalizeUserID recovers an E.164-style identifier that lost its plus
// prefix in transit (CLI tools and query-string decoding both strip a
// leading '+'). Whitespace becomes '+', one trailing '+' is dropped, and a
// leading '+' is ensured.
func NormalizeUserID(raw string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '+'
		}
		return r
	}, raw)

	mapped = strings.TrimSuffix(mapped, "+")

	if !strings.HasPrefix(mapped, "+") {
		mapped = "+" + mapped
	}
	return mapped
}
