package search

import (
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

const ellipsis = "..."

// CleanText strips embedded markup tags, collapses unicode whitespace runs
// into single spaces and trims both ends. CleanText(CleanText(s)) == CleanText(s).
func CleanText(s string) string {
	if s == "" {
		return ""
	}

	s = tagPattern.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// Clip truncates s to at most limit runes, appending "..." when truncated.
func Clip(s string, limit int) string {
	if limit <= 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + ellipsis
}

// RuneLen counts the characters of s.
func RuneLen(s string) int {
	return len([]rune(s))
}
