package tools

import (
	"context"
	"strings"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/wechat-article-search/library/search"
)

const (
	// WechatSearchToolName is the registered MCP tool name.
	WechatSearchToolName = "search_wechat_articles"

	defaultMaxResults = 5
	maxMaxResults     = 20
	maxQueryLength    = 100
)

// WechatSearchOutput is the structured content attached to a successful call.
type WechatSearchOutput struct {
	Query      string           `json:"query"`
	TotalCount int              `json:"total_count"`
	Outcome    search.Outcome   `json:"outcome"`
	Articles   []search.Article `json:"articles"`
}

// WechatSearchTool implements the search_wechat_articles MCP tool.
type WechatSearchTool struct {
	searcher ArticleSearcher
	logger   logSDK.Logger
	clock    Clock
}

// NewWechatSearchTool constructs a WechatSearchTool with the provided dependencies.
func NewWechatSearchTool(searcher ArticleSearcher, logger logSDK.Logger, clock Clock) (*WechatSearchTool, error) {
	if searcher == nil {
		return nil, errors.New("article searcher is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if clock == nil {
		return nil, errors.New("clock is required")
	}

	return &WechatSearchTool{
		searcher: searcher,
		logger:   logger,
		clock:    clock,
	}, nil
}

// Definition returns the MCP metadata describing the tool.
func (t *WechatSearchTool) Definition() mcp.Tool {
	filters := make([]string, 0, len(search.TimeFilters))
	for _, f := range search.TimeFilters {
		filters = append(filters, string(f))
	}

	return mcp.NewTool(
		WechatSearchToolName,
		mcp.WithDescription("Search WeChat official-account articles through Sogou WeChat search. "+
			"Returns title, link, source account, publish date and a short summary for each article."),
		mcp.WithString(
			"query",
			mcp.Required(),
			mcp.Description("Search keywords, at most 100 characters."),
		),
		mcp.WithNumber(
			"max_results",
			mcp.Description("Maximum number of articles to return."),
			mcp.DefaultNumber(defaultMaxResults),
			mcp.Min(1),
			mcp.Max(maxMaxResults),
		),
		mcp.WithString(
			"time_filter",
			mcp.Description("Only return articles published within this window."),
			mcp.Enum(filters...),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

// Handle executes a search and renders the articles as a text block.
func (t *WechatSearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return mcp.NewToolResultError("query cannot be empty"), nil
	}
	if search.RuneLen(query) > maxQueryLength {
		return mcp.NewToolResultError("query must be at most 100 characters"), nil
	}

	maxResults := readIntArgWithDefault(req, "max_results", defaultMaxResults)
	switch {
	case maxResults < 1:
		maxResults = 1
	case maxResults > maxMaxResults:
		maxResults = maxMaxResults
	}

	filter := search.TimeFilterNone
	if raw := readStringArg(req, "time_filter"); strings.TrimSpace(raw) != "" {
		parsed, ok := search.ParseTimeFilter(raw)
		if !ok {
			return mcp.NewToolResultError("time_filter must be one of day, week, month, year"), nil
		}
		filter = parsed
	}

	start := t.clock()
	t.logger.Debug("search_wechat_articles started",
		zap.Int("query_len", search.RuneLen(query)),
		zap.Int("max_results", maxResults),
		zap.String("time_filter", string(filter)))

	result := t.searcher.Search(ctx, search.Request{
		Query:      query,
		MaxResults: maxResults,
		TimeFilter: filter,
	})
	if result == nil {
		t.logger.Error("search_wechat_articles got no result")
		return mcp.NewToolResultError("search failed"), nil
	}

	t.logger.Debug("search_wechat_articles completed",
		zap.String("outcome", string(result.Outcome)),
		zap.Int("results_count", len(result.Articles)),
		zap.Duration("duration", t.clock().Sub(start)))

	if result.Outcome == search.OutcomeInvalid {
		return mcp.NewToolResultError("query cannot be empty"), nil
	}
	if result.Outcome.Failed() {
		t.logger.Warn("search_wechat_articles degraded",
			zap.String("outcome", string(result.Outcome)), zap.Error(result.Err))
	}

	text := search.RenderText(query, result.Articles)
	return mcp.NewToolResultStructured(WechatSearchOutput{
		Query:      query,
		TotalCount: len(result.Articles),
		Outcome:    result.Outcome,
		Articles:   result.Articles,
	}, text), nil
}
