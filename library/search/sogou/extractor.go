package sogou

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/PuerkitoBio/goquery"

	appLog "github.com/Laisky/wechat-article-search/library/log"
	"github.com/Laisky/wechat-article-search/library/search"
)

// ErrExtraction means a single result element could not be turned into an article.
var ErrExtraction = errors.New("article extraction failed")

const dateLayout = "2006-01-02"

var timeConvertPattern = regexp.MustCompile(`timeConvert\('(\d+)'\)`)

// chinaTime is the portal's local time zone.
var chinaTime = time.FixedZone("CST", 8*60*60)

type (
	nodeStrategy = search.Strategy[*goquery.Selection, *goquery.Selection]
	textStrategy = search.Strategy[*goquery.Selection, string]
)

// ExtractorOption customises an Extractor during construction.
type ExtractorOption func(*Extractor)

// WithExtractorLogger overrides the extractor logger.
func WithExtractorLogger(logger logSDK.Logger) ExtractorOption {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithExtractorClock injects the clock used for default dates.
func WithExtractorClock(now func() time.Time) ExtractorOption {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithBaseURL overrides the origin used to resolve root-relative links.
func WithBaseURL(base string) ExtractorOption {
	return func(e *Extractor) {
		if base != "" {
			e.base = base
		}
	}
}

// Extraction is the outcome of extracting one result page.
type Extraction struct {
	Articles []search.Article
	// Strategy is the selector pattern that located the results.
	Strategy string
	// Fallback is set when the whole-page link scan produced the articles.
	Fallback bool
	// Skipped counts matched elements that could not be turned into articles.
	Skipped int
}

// Extractor turns a rendered result page into articles.
// Its strategy chains are built once and never mutated.
type Extractor struct {
	base   string
	now    func() time.Time
	logger logSDK.Logger

	results      *search.Chain[*goquery.Selection, *goquery.Selection]
	containers   *search.Chain[*goquery.Selection, *goquery.Selection]
	descriptions *search.Chain[*goquery.Selection, string]
	metas        *search.Chain[*goquery.Selection, string]
	fallback     *FallbackScanner
}

// NewExtractor constructs an Extractor with the built-in selector tables.
func NewExtractor(opts ...ExtractorOption) (*Extractor, error) {
	e := &Extractor{
		base:   BaseURL,
		now:    time.Now,
		logger: appLog.Logger.Named("sogou_extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}

	chainOpt := search.WithChainLogger(e.logger)
	var err error
	if e.results, err = search.NewChain("results", findStrategies(titleSelectors), chainOpt); err != nil {
		return nil, errors.Wrap(err, "build results chain")
	}
	if e.containers, err = search.NewChain("container", closestStrategies(containerSelectors), chainOpt); err != nil {
		return nil, errors.Wrap(err, "build container chain")
	}
	if e.descriptions, err = search.NewChain("description", firstTextStrategies(descriptionSelectors, minDescriptionLen), chainOpt); err != nil {
		return nil, errors.Wrap(err, "build description chain")
	}
	if e.metas, err = search.NewChain("meta", firstTextStrategies(metaSelectors, 0), chainOpt); err != nil {
		return nil, errors.Wrap(err, "build meta chain")
	}
	e.fallback = NewFallbackScanner(e.base, e.now)

	return e, nil
}

// ExtractHTML parses html and extracts up to max articles from it.
func (e *Extractor) ExtractHTML(rawHTML string, max int) (*Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, errors.Wrap(err, "parse result page")
	}
	return e.Extract(doc, max), nil
}

// Extract commits to the first title selector that matches and builds one
// article per matched element, processing at most max elements. A failing
// element is skipped. Without any match the fallback scanner runs instead.
func (e *Extractor) Extract(doc *goquery.Document, max int) *Extraction {
	prepareDocument(doc)

	matches, pattern, ok := e.results.Run(doc.Selection)
	if !ok {
		e.logger.Info("no result containers matched, scanning page links")
		return &Extraction{
			Articles: e.fallback.Scan(doc, max),
			Strategy: fallbackSelector.Pattern,
			Fallback: true,
		}
	}

	out := &Extraction{Articles: []search.Article{}, Strategy: pattern}
	if max < 1 {
		return out
	}
	if matches.Length() > max {
		matches = matches.Slice(0, max)
	}

	matches.Each(func(i int, node *goquery.Selection) {
		article, err := e.extractOne(node)
		if err != nil {
			out.Skipped++
			e.logger.Debug("skip result element", zap.Int("index", i), zap.Error(err))
			return
		}
		out.Articles = append(out.Articles, article)
	})

	return out
}

func (e *Extractor) extractOne(node *goquery.Selection) (article search.Article, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrExtraction, "panic: %v", r)
		}
	}()

	anchor := node
	if goquery.NodeName(node) != "a" {
		anchor = node.Find("a").First()
	}
	if anchor.Length() == 0 {
		return article, errors.Wrap(ErrExtraction, "no anchor")
	}

	title := search.CleanText(anchor.Text())
	link := strings.TrimSpace(anchor.AttrOr("href", ""))
	if title == "" || link == "" {
		return article, errors.Wrap(ErrExtraction, "missing title or link")
	}

	var description, meta string
	if container, _, ok := e.containers.Run(node); ok {
		description, _, _ = e.descriptions.Run(container)
		meta, _, _ = e.metas.Run(container)
	}

	source, date := ParseMeta(meta)
	source = search.CleanText(source)
	if source == "" {
		source = search.DefaultSource
	}
	if date == "" {
		date = today(e.now)
	}

	return search.Article{
		Title:   title,
		URL:     ResolveURL(e.base, link),
		Source:  source,
		Date:    date,
		Snippet: search.Clip(search.CleanText(description), 200),
	}, nil
}

// prepareDocument renders inline publish-time scripts into plain dates and
// drops every remaining non-content element.
func prepareDocument(doc *goquery.Document) {
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		m := timeConvertPattern.FindStringSubmatch(s.Text())
		if m == nil {
			return
		}
		sec, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return
		}
		s.ReplaceWithHtml(" " + html.EscapeString(time.Unix(sec, 0).In(chinaTime).Format(dateLayout)))
	})

	doc.Find("script, style, noscript").Remove()
}

func today(now func() time.Time) string {
	return now().In(chinaTime).Format(dateLayout)
}

func findStrategies(selectors []search.Selector) []nodeStrategy {
	out := make([]nodeStrategy, 0, len(selectors))
	for _, sel := range selectors {
		pattern := sel.Pattern
		out = append(out, nodeStrategy{
			Name: pattern,
			Apply: func(root *goquery.Selection) (*goquery.Selection, bool) {
				m := root.Find(pattern)
				return m, m.Length() > 0
			},
		})
	}
	return out
}

func closestStrategies(selectors []search.Selector) []nodeStrategy {
	out := make([]nodeStrategy, 0, len(selectors))
	for _, sel := range selectors {
		pattern := sel.Pattern
		out = append(out, nodeStrategy{
			Name: pattern,
			Apply: func(node *goquery.Selection) (*goquery.Selection, bool) {
				m := node.Closest(pattern)
				return m, m.Length() > 0
			},
		})
	}
	return out
}

// firstTextStrategies accept the first element of each pattern when its
// trimmed text is longer than minLen characters.
func firstTextStrategies(selectors []search.Selector, minLen int) []textStrategy {
	out := make([]textStrategy, 0, len(selectors))
	for _, sel := range selectors {
		pattern := sel.Pattern
		out = append(out, textStrategy{
			Name: pattern,
			Apply: func(root *goquery.Selection) (string, bool) {
				m := root.Find(pattern).First()
				if m.Length() == 0 {
					return "", false
				}
				text := strings.TrimSpace(m.Text())
				return text, search.RuneLen(text) > minLen
			},
		})
	}
	return out
}
