// Package mcp exposes the article search as an MCP tool server.
package mcp

import (
	"context"
	"net/http"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"
	srv "github.com/mark3labs/mcp-go/server"

	"github.com/Laisky/wechat-article-search/internal/mcp/tools"
	"github.com/Laisky/wechat-article-search/library/log"
)

const (
	// ServerName is announced to MCP clients during initialization.
	ServerName = "wechat-article-search"
	// ServerVersion is announced to MCP clients during initialization.
	ServerVersion = "1.0.0"

	instructions = "Use the search_wechat_articles tool to find WeChat official-account articles. " +
		"Each result carries the title, link, source account, publish date and a short summary."
)

// Option customises a Server during construction.
type Option func(*Server)

// WithClock injects the clock passed to tools.
func WithClock(clock tools.Clock) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// Server wraps the MCP server state for the stdio and HTTP transports.
type Server struct {
	mcpServer *srv.MCPServer
	handler   http.Handler
	logger    logSDK.Logger
	clock     tools.Clock

	wechatSearch tools.Tool
}

// NewServer constructs an MCP server exposing the article search tool.
func NewServer(searcher tools.ArticleSearcher, logger logSDK.Logger, opts ...Option) (*Server, error) {
	if searcher == nil {
		return nil, errors.New("article searcher is required")
	}
	if logger == nil {
		logger = log.Logger
	}

	s := &Server{
		logger: logger.Named("mcp"),
		clock:  gutils.Clock.GetUTCNow,
	}
	for _, opt := range opts {
		opt(s)
	}

	wechatSearch, err := tools.NewWechatSearchTool(searcher, s.logger.Named("search_wechat_articles"), s.clock)
	if err != nil {
		return nil, errors.Wrap(err, "new search_wechat_articles tool")
	}
	s.wechatSearch = wechatSearch

	s.mcpServer = srv.NewMCPServer(
		ServerName,
		ServerVersion,
		srv.WithToolCapabilities(true),
		srv.WithInstructions(instructions),
		srv.WithRecovery(),
		srv.WithHooks(newMCPHooks(logger.Named("mcp_hooks"))),
	)
	s.mcpServer.AddTool(s.wechatSearch.Definition(), s.handleWechatSearch)

	s.handler = withHTTPLogging(srv.NewStreamableHTTPServer(s.mcpServer), s.logger.Named("http"))

	return s, nil
}

// Handler returns the HTTP handler that should be mounted to serve MCP traffic.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *srv.MCPServer {
	return s.mcpServer
}

// ServeStdio serves MCP over stdin and stdout until the input closes.
func (s *Server) ServeStdio() error {
	s.logger.Info("serving mcp over stdio")
	if err := srv.ServeStdio(s.mcpServer); err != nil {
		return errors.Wrap(err, "serve mcp stdio")
	}
	return nil
}

func (s *Server) handleWechatSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.wechatSearch == nil {
		return mcp.NewToolResultError("search_wechat_articles is not configured"), nil
	}

	result, err := s.wechatSearch.Handle(ctx, req)
	if err != nil {
		s.logger.Error("search_wechat_articles handler", zap.Error(err))
		return mcp.NewToolResultError("search failed"), nil
	}
	return result, nil
}
