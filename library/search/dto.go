package search

import (
	"strings"
	"time"
)

// DefaultSource labels an article whose publisher could not be resolved.
const DefaultSource = "微信公众号"

// Article is one normalized search hit.
// Title and URL are always non-empty for emitted articles.
type Article struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Source  string `json:"source"`
	Date    string `json:"date"`
	Snippet string `json:"snippet"`
}

// TimeFilter restricts results to a publication window.
type TimeFilter string

const (
	TimeFilterNone  TimeFilter = ""
	TimeFilterDay   TimeFilter = "day"
	TimeFilterWeek  TimeFilter = "week"
	TimeFilterMonth TimeFilter = "month"
	TimeFilterYear  TimeFilter = "year"
)

// TimeFilters lists the supported filters in ascending window size.
var TimeFilters = []TimeFilter{TimeFilterDay, TimeFilterWeek, TimeFilterMonth, TimeFilterYear}

// ParseTimeFilter normalizes raw into a TimeFilter.
// It returns false for values outside of TimeFilters; empty input is valid and means no filter.
func ParseTimeFilter(raw string) (TimeFilter, bool) {
	f := TimeFilter(strings.ToLower(strings.TrimSpace(raw)))
	if f == TimeFilterNone {
		return f, true
	}
	for _, known := range TimeFilters {
		if f == known {
			return f, true
		}
	}
	return TimeFilterNone, false
}

// Request is a single search invocation.
type Request struct {
	Query      string
	MaxResults int
	TimeFilter TimeFilter
}

// Outcome classifies how a search ended.
type Outcome string

const (
	// OutcomeOK means structured extraction produced at least one article.
	OutcomeOK Outcome = "ok"
	// OutcomeFallback means articles came from the whole-page link scan.
	OutcomeFallback Outcome = "fallback"
	// OutcomeEmpty is a valid search that produced nothing.
	OutcomeEmpty Outcome = "empty"
	// OutcomeInvalid means the query was empty after sanitizing, nothing was navigated.
	OutcomeInvalid Outcome = "invalid_query"
	// OutcomeSessionError means the browser session could not be made ready.
	OutcomeSessionError Outcome = "session_error"
	// OutcomeNavigationError means the results page could not be loaded.
	OutcomeNavigationError Outcome = "navigation_error"
	// OutcomeFailed covers every other failure, including cancellation.
	OutcomeFailed Outcome = "failed"
)

// Failed reports whether the outcome represents an error rather than a result.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeSessionError, OutcomeNavigationError, OutcomeFailed:
		return true
	default:
		return false
	}
}

// Result is the typed outcome of a search.
// Articles is never nil so callers can serialize it directly.
type Result struct {
	Query      string        `json:"query"`
	MaxResults int           `json:"max_results"`
	TimeFilter TimeFilter    `json:"time_filter,omitempty"`
	Articles   []Article     `json:"articles"`
	Outcome    Outcome       `json:"outcome"`
	Err        error         `json:"-"`
	StartedAt  time.Time     `json:"started_at"`
	Elapsed    time.Duration `json:"elapsed"`
}

// NewResult returns an empty result for query.
func NewResult(query string, startedAt time.Time) *Result {
	return &Result{
		Query:     query,
		Articles:  []Article{},
		Outcome:   OutcomeEmpty,
		StartedAt: startedAt,
	}
}
