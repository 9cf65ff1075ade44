// Package web serves the article search over HTTP.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/wechat-article-search/library/jwt"
	"github.com/Laisky/wechat-article-search/library/log"
	"github.com/Laisky/wechat-article-search/library/search"
	"github.com/Laisky/wechat-article-search/library/search/sogou"
	"github.com/Laisky/wechat-article-search/library/throttle"
)

const (
	// ServiceName is reported by the health endpoint.
	ServiceName = "wechat-article-search"

	shutdownTimeout = 10 * time.Second
)

// Searcher is the search backend served over HTTP.
type Searcher interface {
	Search(ctx context.Context, req search.Request) *search.Result
	IsHealthy() bool
	Restart(ctx context.Context) error
	Stats() sogou.Stats
}

// Option customises a Server during construction.
type Option func(*Server)

// WithLogger overrides the server logger.
func WithLogger(logger logSDK.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithVersion sets the version reported by health and stats.
func WithVersion(version string) Option {
	return func(s *Server) {
		if version != "" {
			s.version = version
		}
	}
}

// WithClock injects the time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithCache enables the advisory response cache.
func WithCache(cache *ResultCache) Option {
	return func(s *Server) {
		s.cache = cache
	}
}

// WithThrottle rate limits the search routes per client IP.
func WithThrottle(t *throttle.KeyThrottle) Option {
	return func(s *Server) {
		s.throttle = t
	}
}

// WithAdminVerifier guards the operational routes with admin tokens.
func WithAdminVerifier(v *jwt.Verifier) Option {
	return func(s *Server) {
		s.admin = v
	}
}

// WithMCPHandler mounts a streamable MCP handler under /mcp.
func WithMCPHandler(h http.Handler) Option {
	return func(s *Server) {
		s.mcp = h
	}
}

// Server is the gin HTTP front end of the searcher.
type Server struct {
	searcher  Searcher
	engine    *gin.Engine
	logger    logSDK.Logger
	version   string
	clock     func() time.Time
	startedAt time.Time

	cache    *ResultCache
	throttle *throttle.KeyThrottle
	admin    *jwt.Verifier
	mcp      http.Handler
}

// NewServer builds the router. Nothing listens until Run is called.
func NewServer(searcher Searcher, opts ...Option) (*Server, error) {
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}

	s := &Server{
		searcher: searcher,
		logger:   log.Logger.Named("web"),
		version:  "1.0.0",
		clock:    gutils.Clock.GetUTCNow,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startedAt = s.clock()

	s.engine = gin.New()
	s.engine.ContextWithFallback = true
	s.engine.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(gmw.WithLogger(s.logger.Named("gin"))),
		allowCORS,
		requestID,
	)
	s.routes()

	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/health", s.health)
	s.engine.GET("/stats", s.stats)

	limited := s.engine.Group("/", rateLimit(s.throttle))
	limited.POST("/search_articles", s.searchArticles)
	limited.POST("/search_articles_compatible", s.searchArticlesCompatible)

	admin := s.engine.Group("/", adminOnly(s.admin))
	admin.DELETE("/cache", s.clearCache)
	admin.POST("/restart_browser", s.restartBrowser)

	if s.mcp != nil {
		s.engine.Any("/mcp", gin.WrapH(s.mcp))
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on http", zap.String("addr", addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "listen http")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown http server")
	}
	return nil
}
