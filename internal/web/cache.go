package web

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Laisky/wechat-article-search/library/search"
)

// ResultCache is a bounded, expiring cache of search responses.
// It is advisory: entries are never refreshed, only dropped after their TTL.
type ResultCache struct {
	lru *expirable.LRU[string, SearchArticlesResponse]
}

// NewResultCache returns a cache holding at most size responses for ttl each.
func NewResultCache(size int, ttl time.Duration) *ResultCache {
	if size <= 0 {
		size = 512
	}
	return &ResultCache{lru: expirable.NewLRU[string, SearchArticlesResponse](size, nil, ttl)}
}

// cacheKey identifies a response by its normalized request.
func cacheKey(query string, maxResults int, filter search.TimeFilter) string {
	return fmt.Sprintf("%s_%d_%s", query, maxResults, filter)
}

// Get returns the cached response for key.
func (c *ResultCache) Get(key string) (SearchArticlesResponse, bool) {
	return c.lru.Get(key)
}

// Add stores resp under key.
func (c *ResultCache) Add(key string, resp SearchArticlesResponse) {
	c.lru.Add(key, resp)
}

// Len returns the number of live entries.
func (c *ResultCache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry and returns how many there were.
func (c *ResultCache) Purge() int {
	n := c.lru.Len()
	c.lru.Purge()
	return n
}
