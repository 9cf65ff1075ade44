package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/wechat-article-search/library/search"
)

// ArticleSearcher runs one article search. It reports failures through the
// returned result instead of an error.
type ArticleSearcher interface {
	Search(ctx context.Context, req search.Request) *search.Result
}

// Clock returns the current time. It enables deterministic tests.
type Clock func() time.Time

// Tool exposes the capabilities required by the MCP server registration lifecycle.
type Tool interface {
	Definition() mcp.Tool
	Handle(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
}
