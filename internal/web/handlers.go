package web

import (
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"

	"github.com/Laisky/wechat-article-search/library/search"
	"github.com/Laisky/wechat-article-search/library/search/sogou"
)

const (
	defaultMaxResults = 5
	maxMaxResults     = 20
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:        "healthy",
		Service:       ServiceName,
		Version:       s.version,
		Uptime:        s.uptime(),
		BrowserStatus: s.browserStatus(),
	})
}

func (s *Server) stats(c *gin.Context) {
	st := s.searcher.Stats()
	cacheSize := 0
	if s.cache != nil {
		cacheSize = s.cache.Len()
	}

	c.JSON(http.StatusOK, statsResponse{
		Uptime:         s.uptime(),
		CacheSize:      cacheSize,
		BrowserStatus:  s.browserStatus(),
		Version:        s.version,
		Searches:       st.Searches,
		LastOutcome:    st.LastOutcome,
		Outcomes:       st.Outcomes,
		BrowserLaunch:  st.Session.Launches,
		LaunchFailures: st.Session.LaunchFailures,
	})
}

func (s *Server) searchArticles(c *gin.Context) {
	var req SearchArticlesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	maxResults := defaultMaxResults
	if req.MaxResults != nil {
		maxResults = *req.MaxResults
	}
	if maxResults < 1 || maxResults > maxMaxResults {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("max_results must be between 1 and %d", maxMaxResults),
		})
		return
	}

	query, msg := validateQuery(req.Query)
	if msg != "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
		return
	}

	filter, ok := search.ParseTimeFilter(req.TimeFilter)
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "time_filter must be one of day, week, month, year"})
		return
	}

	useCache := req.UseCache == nil || *req.UseCache
	resp, ok := s.runSearch(c, query, maxResults, filter, useCache)
	if !ok {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "search failed"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) searchArticlesCompatible(c *gin.Context) {
	var req CompatibleSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "request body must be a JSON object"})
		return
	}

	topNum := defaultMaxResults
	if req.TopNum != nil {
		topNum = *req.TopNum
	}
	if topNum < 1 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "top_num must be positive"})
		return
	}
	if topNum > maxMaxResults {
		topNum = maxMaxResults
	}

	query, msg := validateQuery(req.Query)
	if msg != "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
		return
	}

	resp, ok := s.runSearch(c, query, topNum, search.TimeFilterNone, true)
	if !ok {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "search failed"})
		return
	}

	articles := []CompatibleArticle{}
	if err := copier.Copy(&articles, resp.Articles); err != nil {
		s.requestLogger(c).Error("convert articles", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "convert articles"})
		return
	}

	c.JSON(http.StatusOK, CompatibleSearchResponse{
		Articles:   articles,
		TotalCount: len(articles),
	})
}

func (s *Server) clearCache(c *gin.Context) {
	n := 0
	if s.cache != nil {
		n = s.cache.Purge()
	}

	s.requestLogger(c).Info("search cache cleared", zap.Int("entries", n))
	c.JSON(http.StatusOK, messageResponse{Message: fmt.Sprintf("已清理 %d 条缓存", n)})
}

func (s *Server) restartBrowser(c *gin.Context) {
	logger := s.requestLogger(c)
	if err := s.searcher.Restart(c); err != nil {
		logger.Error("restart browser", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "浏览器重启失败: " + err.Error()})
		return
	}

	logger.Info("browser restarted")
	c.JSON(http.StatusOK, messageResponse{Message: "浏览器重启成功"})
}

// runSearch serves a validated request, from the cache when allowed.
// Failed searches are returned but never cached.
func (s *Server) runSearch(c *gin.Context, query string, maxResults int,
	filter search.TimeFilter, useCache bool) (SearchArticlesResponse, bool) {
	logger := s.requestLogger(c)
	key := cacheKey(query, maxResults, filter)
	if useCache && s.cache != nil {
		if resp, ok := s.cache.Get(key); ok {
			logger.Info("serving cached search", zap.Int("count", resp.TotalCount))
			return resp, true
		}
	}

	start := s.clock()
	res := s.searcher.Search(c, search.Request{
		Query:      query,
		MaxResults: maxResults,
		TimeFilter: filter,
	})
	if res == nil {
		logger.Error("searcher returned no result")
		return SearchArticlesResponse{}, false
	}

	elapsed := res.Elapsed
	if elapsed <= 0 {
		elapsed = s.clock().Sub(start)
	}

	resp := SearchArticlesResponse{
		Articles:   res.Articles,
		TotalCount: len(res.Articles),
		SearchTime: math.Round(elapsed.Seconds()*100) / 100,
		Query:      query,
		Timestamp:  s.clock().Format(time.RFC3339),
		Outcome:    res.Outcome,
	}
	if resp.Articles == nil {
		resp.Articles = []search.Article{}
	}

	if useCache && s.cache != nil && !res.Outcome.Failed() {
		s.cache.Add(key, resp)
	}
	return resp, true
}

// validateQuery trims and sanitizes a raw query.
// It returns a client-facing message when the query is unusable.
func validateQuery(raw string) (string, string) {
	trimmed := strings.TrimSpace(raw)
	switch {
	case trimmed == "":
		return "", "query is required"
	case search.RuneLen(trimmed) > sogou.MaxQueryLength:
		return "", fmt.Sprintf("query must be at most %d characters", sogou.MaxQueryLength)
	}

	query := sogou.SanitizeQuery(trimmed)
	if query == "" {
		return "", "query is empty after removing unsupported characters"
	}
	return query, ""
}

func (s *Server) uptime() float64 {
	return s.clock().Sub(s.startedAt).Seconds()
}

func (s *Server) browserStatus() string {
	if s.searcher.IsHealthy() {
		return "connected"
	}
	return "disconnected"
}

func (s *Server) requestLogger(c *gin.Context) logSDK.Logger {
	logger := s.logger
	if ctxLogger := gmw.GetLogger(c); ctxLogger != nil {
		logger = ctxLogger
	}
	return logger.With(zap.String("request_id", c.GetString(ctxKeyRequestID)))
}
