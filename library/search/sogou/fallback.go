package sogou

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Laisky/wechat-article-search/library/search"
)

// fallbackLimit caps how many links the whole-page scan may emit.
const fallbackLimit = 10

// FallbackScanner harvests article links from the whole page when no
// structured result container was found.
type FallbackScanner struct {
	base string
	now  func() time.Time
}

// NewFallbackScanner constructs a scanner resolving links against base.
func NewFallbackScanner(base string, now func() time.Time) *FallbackScanner {
	if now == nil {
		now = time.Now
	}
	return &FallbackScanner{base: base, now: now}
}

// Scan returns minimal records for anchors pointing at the publishing domain,
// at most min(10, max) of them.
func (f *FallbackScanner) Scan(doc *goquery.Document, max int) []search.Article {
	limit := fallbackLimit
	if max < limit {
		limit = max
	}

	articles := []search.Article{}
	if limit < 1 {
		return articles
	}

	date := today(f.now)
	doc.Find(fallbackSelector.Pattern).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		title := search.CleanText(a.Text())
		link := strings.TrimSpace(a.AttrOr("href", ""))
		if title != "" && link != "" {
			articles = append(articles, search.Article{
				Title:  title,
				URL:    ResolveURL(f.base, link),
				Source: search.DefaultSource,
				Date:   date,
			})
		}
		return len(articles) < limit
	})

	return articles
}
