// Package sogou extracts WeChat article listings from the Sogou WeChat search portal.
package sogou

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/Laisky/wechat-article-search/library/search"
)

const (
	// BaseURL is the origin of the search portal.
	BaseURL = "https://weixin.sogou.com"
	// searchPath serves the result listing.
	searchPath = "/weixin"
	// articleType selects article results instead of official accounts.
	articleType = "2"

	MaxQueryLength    = 100
	MinResults        = 1
	MaxResults        = 50
	DefaultMaxResults = 5
)

var markupChars = regexp.MustCompile(`[<>"']`)

var filterCodes = map[search.TimeFilter]string{
	search.TimeFilterDay:   "1",
	search.TimeFilterWeek:  "7",
	search.TimeFilterMonth: "30",
	search.TimeFilterYear:  "365",
}

// SanitizeQuery removes markup-significant characters, keeps at most
// MaxQueryLength characters and trims surrounding whitespace.
func SanitizeQuery(q string) string {
	q = markupChars.ReplaceAllString(q, "")
	if runes := []rune(q); len(runes) > MaxQueryLength {
		q = string(runes[:MaxQueryLength])
	}
	return strings.TrimSpace(q)
}

// ClampMaxResults forces n into [MinResults, MaxResults].
func ClampMaxResults(n int) int {
	switch {
	case n < MinResults:
		return MinResults
	case n > MaxResults:
		return MaxResults
	default:
		return n
	}
}

// FilterCode maps a time filter onto the portal's tsn code.
// Unknown filters yield "" which means no filter.
func FilterCode(f search.TimeFilter) string {
	return filterCodes[search.TimeFilter(strings.ToLower(string(f)))]
}

// BuildSearchURL builds the result page URL for an already sanitized query.
func BuildSearchURL(base, query string, filter search.TimeFilter) string {
	params := url.Values{}
	params.Set("query", query)
	params.Set("type", articleType)
	params.Set("ie", "utf8")
	if code := FilterCode(filter); code != "" {
		params.Set("tsn", code)
	}

	return strings.TrimRight(base, "/") + searchPath + "?" + params.Encode()
}
