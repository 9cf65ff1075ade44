package sogou

import (
	"regexp"
	"strings"
)

// metaPatterns are tried in order; each captures (source, date).
var metaPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(.+?)\s+(\d{4}-\d{2}-\d{2})`),
	regexp.MustCompile(`^(.+?)\s+(\d+天前|\d+小时前|\d+分钟前|\d+\s*(?:days?|hours?|minutes?|mins?)\s+ago)`),
	regexp.MustCompile(`^(.+?)\s+(.+)`),
}

// ParseMeta splits a combined "source timestamp" string into its parts.
// Without a recognizable separator the whole text is the source and the date is empty.
func ParseMeta(raw string) (source, date string) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", ""
	}

	for _, pattern := range metaPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		}
	}

	return text, ""
}
