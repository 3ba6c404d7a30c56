package summary

import "strings"

// Sentinel is returned by the flag mode for incoherent, threatening or aggressive input.
const Sentinel = "INADEQUATE"

// MaxWords bounds the requested summary length.
const MaxWords = 30

// IsFlagged reports whether a generated answer is the sentinel.
// Models often wrap the token in quotes or add a trailing period.
func IsFlagged(s string) bool {
	trimmed := strings.Trim(strings.TrimSpace(s), "\"'“”«».!")
	return strings.EqualFold(trimmed, Sentinel)
}
