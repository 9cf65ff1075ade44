package web

import "github.com/Laisky/wechat-article-search/library/search"

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// SearchArticlesRequest is the body of POST /search_articles.
type SearchArticlesRequest struct {
	Query      string `json:"query"`
	MaxResults *int   `json:"max_results"`
	TimeFilter string `json:"time_filter"`
	UseCache   *bool  `json:"use_cache"`
}

// SearchArticlesResponse is returned by POST /search_articles.
type SearchArticlesResponse struct {
	Articles   []search.Article `json:"articles"`
	TotalCount int              `json:"total_count"`
	// SearchTime is in seconds, rounded to hundredths.
	SearchTime float64        `json:"search_time"`
	Query      string         `json:"query"`
	Timestamp  string         `json:"timestamp"`
	Outcome    search.Outcome `json:"outcome,omitempty"`
}

// CompatibleSearchRequest is the body of POST /search_articles_compatible.
type CompatibleSearchRequest struct {
	Query  string `json:"query"`
	TopNum *int   `json:"top_num"`
}

// CompatibleArticle is an article without its snippet.
type CompatibleArticle struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source string `json:"source"`
	Date   string `json:"date"`
}

// CompatibleSearchResponse is returned by POST /search_articles_compatible.
type CompatibleSearchResponse struct {
	Articles   []CompatibleArticle `json:"articles"`
	TotalCount int                 `json:"total_count"`
}

type healthResponse struct {
	Status        string  `json:"status"`
	Service       string  `json:"service"`
	Version       string  `json:"version"`
	Uptime        float64 `json:"uptime"`
	BrowserStatus string  `json:"browser_status"`
}

type statsResponse struct {
	Uptime         float64                `json:"uptime"`
	CacheSize      int                    `json:"cache_size"`
	BrowserStatus  string                 `json:"browser_status"`
	Version        string                 `json:"version"`
	Searches       int                    `json:"searches"`
	LastOutcome    search.Outcome         `json:"last_outcome,omitempty"`
	Outcomes       map[search.Outcome]int `json:"outcomes"`
	BrowserLaunch  int                    `json:"browser_launches"`
	LaunchFailures int                    `json:"browser_launch_failures"`
}
