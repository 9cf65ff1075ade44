package tools

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	mcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/wechat-article-search/library/log"
	"github.com/Laisky/wechat-article-search/library/search"
)

type stubArticleSearcher struct {
	mu       sync.Mutex
	requests []search.Request
	result   *search.Result
}

func (s *stubArticleSearcher) Search(_ context.Context, req search.Request) *search.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if s.result == nil {
		res := search.NewResult(req.Query, time.Unix(0, 0))
		res.Outcome = search.OutcomeEmpty
		return res
	}
	return s.result
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func mustWechatSearchTool(t *testing.T, searcher ArticleSearcher) *WechatSearchTool {
	t.Helper()

	tool, err := NewWechatSearchTool(searcher, log.Logger.Named("wechat_search_test"), fixedClock(time.Unix(0, 0)))
	require.NoError(t, err)
	return tool
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      WechatSearchToolName,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	textContent, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return textContent.Text
}

func TestNewWechatSearchToolValidatesDependencies(t *testing.T) {
	_, err := NewWechatSearchTool(nil, log.Logger, time.Now)
	require.Error(t, err)

	_, err = NewWechatSearchTool(&stubArticleSearcher{}, nil, time.Now)
	require.Error(t, err)

	_, err = NewWechatSearchTool(&stubArticleSearcher{}, log.Logger, nil)
	require.Error(t, err)
}

func TestWechatSearchDefinition(t *testing.T) {
	def := mustWechatSearchTool(t, &stubArticleSearcher{}).Definition()

	require.Equal(t, WechatSearchToolName, def.Name)
	require.Contains(t, def.InputSchema.Required, "query")
	require.Contains(t, def.InputSchema.Properties, "max_results")
	require.Contains(t, def.InputSchema.Properties, "time_filter")
}

func TestWechatSearchHandleRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{name: "missing query", args: map[string]any{}, want: "query"},
		{name: "blank query", args: map[string]any{"query": "   "}, want: "query cannot be empty"},
		{name: "long query", args: map[string]any{"query": strings.Repeat("长", 101)}, want: "at most 100"},
		{name: "unknown filter", args: map[string]any{"query": "golang", "time_filter": "decade"}, want: "time_filter"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			searcher := &stubArticleSearcher{}
			tool := mustWechatSearchTool(t, searcher)

			result, err := tool.Handle(context.Background(), callRequest(tc.args))
			require.NoError(t, err)
			require.True(t, result.IsError)
			require.Contains(t, resultText(t, result), tc.want)
			require.Empty(t, searcher.requests)
		})
	}
}

func TestWechatSearchHandleBuildsRequest(t *testing.T) {
	tests := []struct {
		name       string
		args       map[string]any
		wantMax    int
		wantFilter search.TimeFilter
	}{
		{name: "defaults", args: map[string]any{"query": "golang"}, wantMax: 5, wantFilter: search.TimeFilterNone},
		{name: "float number", args: map[string]any{"query": "golang", "max_results": float64(8)}, wantMax: 8, wantFilter: search.TimeFilterNone},
		{name: "clamped high", args: map[string]any{"query": "golang", "max_results": float64(50)}, wantMax: 20, wantFilter: search.TimeFilterNone},
		{name: "clamped low", args: map[string]any{"query": "golang", "max_results": float64(0)}, wantMax: 1, wantFilter: search.TimeFilterNone},
		{name: "filter", args: map[string]any{"query": "golang", "time_filter": " Week "}, wantMax: 5, wantFilter: search.TimeFilterWeek},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			searcher := &stubArticleSearcher{}
			tool := mustWechatSearchTool(t, searcher)

			result, err := tool.Handle(context.Background(), callRequest(tc.args))
			require.NoError(t, err)
			require.False(t, result.IsError)
			require.Len(t, searcher.requests, 1)
			require.Equal(t, "golang", searcher.requests[0].Query)
			require.Equal(t, tc.wantMax, searcher.requests[0].MaxResults)
			require.Equal(t, tc.wantFilter, searcher.requests[0].TimeFilter)
		})
	}
}

func TestWechatSearchHandleRendersArticles(t *testing.T) {
	res := search.NewResult("golang", time.Unix(0, 0))
	res.Outcome = search.OutcomeOK
	res.Articles = []search.Article{
		{
			Title:   "Go 语言并发编程实践",
			URL:     "https://mp.weixin.qq.com/s/a",
			Source:  "Go语言中文网",
			Date:    "2024-05-01",
			Snippet: "goroutine 与 channel",
		},
	}
	tool := mustWechatSearchTool(t, &stubArticleSearcher{result: res})

	result, err := tool.Handle(context.Background(), callRequest(map[string]any{"query": "golang"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	require.True(t, strings.HasPrefix(text, "找到 1 篇关于「golang」的微信文章：\n\n"))
	require.Contains(t, text, "1. **Go 语言并发编程实践**\n")
	require.Contains(t, text, "   来源：Go语言中文网\n")
	require.Contains(t, text, "   时间：2024-05-01\n")
	require.Contains(t, text, "   摘要：goroutine 与 channel...\n")
	require.Contains(t, text, "   链接：https://mp.weixin.qq.com/s/a\n")

	structured, ok := result.StructuredContent.(WechatSearchOutput)
	require.True(t, ok)
	require.Equal(t, 1, structured.TotalCount)
	require.Equal(t, search.OutcomeOK, structured.Outcome)
	require.Equal(t, res.Articles, structured.Articles)
}

func TestWechatSearchHandleDegradedSearch(t *testing.T) {
	res := search.NewResult("golang", time.Unix(0, 0))
	res.Outcome = search.OutcomeNavigationError
	res.Err = errors.New("navigation timed out")
	tool := mustWechatSearchTool(t, &stubArticleSearcher{result: res})

	result, err := tool.Handle(context.Background(), callRequest(map[string]any{"query": "golang"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, "未找到关于「golang」的微信文章。", resultText(t, result))
}
