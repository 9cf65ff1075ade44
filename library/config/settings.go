package config

import (
	"time"

	gconfig "github.com/Laisky/go-config/v2"
)

// Settings is the typed view of the service configuration.
type Settings struct {
	Browser   BrowserSettings
	Search    SearchSettings
	Cache     CacheSettings
	RateLimit RateLimitSettings
	Admin     AdminSettings
	Keeper    KeeperSettings
}

// BrowserSettings configures the headless browser session.
type BrowserSettings struct {
	Headless       bool
	Proxy          string
	UserAgentIndex int
	// RotateUserAgent advances through the user agent pool on every relaunch.
	RotateUserAgent bool
	DefaultTimeout  time.Duration
}

// SearchSettings configures navigation budgets of the search pipeline.
type SearchSettings struct {
	NavigationTimeout  time.Duration
	NavigationAttempts int
	RetryBackoff       time.Duration
	SelectorWait       time.Duration
	// WaitBudget caps the total wait for result containers, 0 leaves only SelectorWait.
	WaitBudget time.Duration
}

// CacheSettings configures the advisory result cache of the HTTP layer.
type CacheSettings struct {
	Enabled bool
	TTL     time.Duration
	Size    int
}

// RateLimitSettings configures per-client request throttling.
type RateLimitSettings struct {
	PerMinute int
}

// AdminSettings configures access to administrative endpoints.
type AdminSettings struct {
	// Secret signs admin bearer tokens. Empty disables the check.
	Secret string
}

// KeeperSettings configures the background browser keeper.
type KeeperSettings struct {
	// Schedule is a cron spec, empty disables the keeper.
	Schedule string
}

// configGetter abstracts read access to configuration values.
type configGetter interface {
	Get(key string) any
	GetBool(key string) bool
	GetInt(key string) int
	GetString(key string) string
}

// DefaultSettings returns the built-in configuration.
func DefaultSettings() Settings {
	return Settings{
		Browser: BrowserSettings{
			Headless:       true,
			DefaultTimeout: 30 * time.Second,
		},
		Search: SearchSettings{
			NavigationTimeout:  20 * time.Second,
			NavigationAttempts: 3,
			RetryBackoff:       2 * time.Second,
			SelectorWait:       10 * time.Second,
		},
		Cache: CacheSettings{
			Enabled: true,
			TTL:     5 * time.Minute,
			Size:    512,
		},
		RateLimit: RateLimitSettings{PerMinute: 10},
		Keeper:    KeeperSettings{Schedule: "@every 5m"},
	}
}

// LoadSettings builds Settings from the shared config, falling back to defaults
// for every key that is not set.
func LoadSettings() Settings {
	return loadSettings(gconfig.Shared)
}

func loadSettings(cfg configGetter) Settings {
	s := DefaultSettings()

	if isSet(cfg, "settings.browser.headless") {
		s.Browser.Headless = cfg.GetBool("settings.browser.headless")
	}
	s.Browser.Proxy = cfg.GetString("settings.browser.proxy")
	s.Browser.UserAgentIndex = cfg.GetInt("settings.browser.user_agent_index")
	s.Browser.RotateUserAgent = cfg.GetBool("settings.browser.rotate_user_agent")
	setMillis(cfg, "settings.browser.default_timeout_ms", &s.Browser.DefaultTimeout)

	setMillis(cfg, "settings.search.navigation_timeout_ms", &s.Search.NavigationTimeout)
	setInt(cfg, "settings.search.navigation_attempts", &s.Search.NavigationAttempts)
	setMillis(cfg, "settings.search.retry_backoff_ms", &s.Search.RetryBackoff)
	setMillis(cfg, "settings.search.selector_wait_ms", &s.Search.SelectorWait)
	setMillis(cfg, "settings.search.wait_budget_ms", &s.Search.WaitBudget)

	if isSet(cfg, "settings.cache.enabled") {
		s.Cache.Enabled = cfg.GetBool("settings.cache.enabled")
	}
	if isSet(cfg, "settings.cache.ttl_seconds") {
		s.Cache.TTL = time.Duration(cfg.GetInt("settings.cache.ttl_seconds")) * time.Second
	}
	setInt(cfg, "settings.cache.size", &s.Cache.Size)

	setInt(cfg, "settings.ratelimit.per_minute", &s.RateLimit.PerMinute)

	s.Admin.Secret = cfg.GetString("settings.admin.secret")

	if isSet(cfg, "settings.keeper.schedule") {
		s.Keeper.Schedule = cfg.GetString("settings.keeper.schedule")
	}

	return s
}

func isSet(cfg configGetter, key string) bool {
	return cfg.Get(key) != nil
}

func setInt(cfg configGetter, key string, dst *int) {
	if isSet(cfg, key) {
		*dst = cfg.GetInt(key)
	}
}

func setMillis(cfg configGetter, key string, dst *time.Duration) {
	if isSet(cfg, key) {
		*dst = time.Duration(cfg.GetInt(key)) * time.Millisecond
	}
}
