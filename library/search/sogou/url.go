package sogou

import "strings"

// ResolveURL qualifies root-relative links against base.
// Absolute links and every other relative form are returned unchanged.
func ResolveURL(base, link string) string {
	switch {
	case link == "":
		return ""
	case strings.HasPrefix(link, "http"):
		return link
	case strings.HasPrefix(link, "/"):
		return strings.TrimRight(base, "/") + link
	default:
		return link
	}
}
