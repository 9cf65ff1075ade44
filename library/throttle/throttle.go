// Package throttle limits request rates per client key.
package throttle

import (
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	defaultMaxKeys = 4096
	// idleTTL drops limiters of clients that stayed quiet for a while.
	idleTTL = 10 * time.Minute
)

// KeyThrottleCfg configuration for KeyThrottle
type KeyThrottleCfg struct {
	// PerMinute is the sustained number of requests allowed per key.
	PerMinute int
	// Burst defaults to PerMinute.
	Burst int
	// MaxKeys bounds how many distinct keys are tracked at once.
	MaxKeys int
}

// KeyThrottle keeps one token bucket per key, for example per client IP.
type KeyThrottle struct {
	sync.Mutex
	cfg      KeyThrottleCfg
	limiters *expirable.LRU[string, *rate.Limiter]
}

// NewKeyThrottle create new KeyThrottle
func NewKeyThrottle(cfg KeyThrottleCfg) (*KeyThrottle, error) {
	if cfg.PerMinute <= 0 {
		return nil, errors.Errorf("PerMinute must be bigger than 0, got %d", cfg.PerMinute)
	}
	if cfg.Burst == 0 {
		cfg.Burst = cfg.PerMinute
	}
	if cfg.Burst < 0 {
		return nil, errors.Errorf("Burst must not be negative, got %d", cfg.Burst)
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = defaultMaxKeys
	}

	return &KeyThrottle{
		cfg:      cfg,
		limiters: expirable.NewLRU[string, *rate.Limiter](cfg.MaxKeys, nil, idleTTL),
	}, nil
}

// Allow reports whether key may proceed now, consuming one token if so.
func (t *KeyThrottle) Allow(key string) bool {
	return t.AllowAt(key, time.Now())
}

// AllowAt is Allow with an explicit current time.
func (t *KeyThrottle) AllowAt(key string, now time.Time) bool {
	return t.limiter(key).AllowN(now, 1)
}

// Keys returns the number of keys currently tracked.
func (t *KeyThrottle) Keys() int {
	return t.limiters.Len()
}

func (t *KeyThrottle) limiter(key string) *rate.Limiter {
	if l, ok := t.limiters.Get(key); ok {
		return l
	}

	t.Lock()
	defer t.Unlock()
	if l, ok := t.limiters.Get(key); ok {
		return l
	}

	l := rate.NewLimiter(rate.Every(time.Minute/time.Duration(t.cfg.PerMinute)), t.cfg.Burst)
	t.limiters.Add(key, l)
	return l
}
