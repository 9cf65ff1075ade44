package cmd

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/robfig/cron/v3"

	"github.com/Laisky/wechat-article-search/library/browser"
)

// configGetter retrieves raw configuration values by dotted key path.
type configGetter func(key string) any

// validateStartupConfig validates startup configuration from the shared config source.
// It returns an error when any configured value is malformed or violates constraints.
func validateStartupConfig() error {
	return validateStartupConfigWithGetter(func(key string) any {
		return gconfig.Shared.Get(key)
	})
}

// validateStartupConfigWithGetter validates startup configuration via a key-value getter.
// It accepts a value getter and returns nil when all configured values are valid.
func validateStartupConfigWithGetter(get configGetter) error {
	if get == nil {
		return errors.New("config getter is nil")
	}

	validationErrs := make([]string, 0)

	validateBrowserConfig(get, &validationErrs)
	validateSearchConfig(get, &validationErrs)
	validateCacheConfig(get, &validationErrs)
	validateRateLimitConfig(get, &validationErrs)
	validateAdminConfig(get, &validationErrs)
	validateKeeperConfig(get, &validationErrs)

	if len(validationErrs) == 0 {
		return nil
	}

	return errors.Errorf("invalid configuration:\n - %s", strings.Join(validationErrs, "\n - "))
}

// validateBrowserConfig validates headless browser launch settings.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateBrowserConfig(get configGetter, errs *[]string) {
	validateOptionalBool(get, "settings.browser.headless", errs)
	validateOptionalURL(get, "settings.browser.proxy", errs)
	validateOptionalIntRange(get, "settings.browser.user_agent_index", 0, len(browser.UserAgents)-1, errs)
	validateOptionalBool(get, "settings.browser.rotate_user_agent", errs)
	validateOptionalIntMin(get, "settings.browser.default_timeout_ms", 1, errs)
}

// validateSearchConfig validates navigation budgets of the search pipeline.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateSearchConfig(get configGetter, errs *[]string) {
	validateOptionalIntMin(get, "settings.search.navigation_timeout_ms", 1, errs)
	validateOptionalIntRange(get, "settings.search.navigation_attempts", 1, 10, errs)
	validateOptionalIntMin(get, "settings.search.retry_backoff_ms", 0, errs)
	validateOptionalIntMin(get, "settings.search.selector_wait_ms", 1, errs)
	// 0 waits on every selector without an overall cap
	validateOptionalIntMin(get, "settings.search.wait_budget_ms", 0, errs)
}

// validateCacheConfig validates the result cache.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateCacheConfig(get configGetter, errs *[]string) {
	validateOptionalBool(get, "settings.cache.enabled", errs)
	validateOptionalIntMin(get, "settings.cache.ttl_seconds", 1, errs)
	validateOptionalIntMin(get, "settings.cache.size", 1, errs)
}

// validateRateLimitConfig validates per-client throttling.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateRateLimitConfig(get configGetter, errs *[]string) {
	// 0 disables the limiter
	validateOptionalIntMin(get, "settings.ratelimit.per_minute", 0, errs)
}

// validateAdminConfig validates the admin token secret.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateAdminConfig(get configGetter, errs *[]string) {
	raw := get("settings.admin.secret")
	if raw == nil {
		return
	}

	secret, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "settings.admin.secret must be a string")
		return
	}

	if secret != "" && len(strings.TrimSpace(secret)) < 16 {
		appendValidationError(errs, "settings.admin.secret must be at least 16 characters")
	}
}

// validateKeeperConfig validates the browser keeper schedule.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateKeeperConfig(get configGetter, errs *[]string) {
	raw := get("settings.keeper.schedule")
	if raw == nil {
		return
	}

	spec, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "settings.keeper.schedule must be a string")
		return
	}

	if strings.TrimSpace(spec) == "" {
		return
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		appendValidationError(errs, "settings.keeper.schedule must be a cron spec: %v", err)
	}
}

// validateOptionalBool validates an optionally configured boolean key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalBool(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	if _, ok := parseStrictBool(raw); !ok {
		appendValidationError(errs, "%s must be a boolean", key)
	}
}

// validateOptionalIntMin validates an optionally configured integer key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalIntMin(get configGetter, key string, min int, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalIntRange validates an optionally configured integer key within [min, max].
func validateOptionalIntRange(get configGetter, key string, min, max int, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min || value > max {
		appendValidationError(errs, "%s must be within [%d, %d]", key, min, max)
	}
}

// validateOptionalURL validates an optionally configured absolute URL key.
// Empty values are accepted and mean unset.
func validateOptionalURL(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string URL", key)
		return
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		appendValidationError(errs, "%s must be a valid absolute URL", key)
	}
}

// parseStrictBool parses a value as boolean using strict conversion rules.
// It accepts a raw value and returns the parsed boolean and whether parsing succeeded.
func parseStrictBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		if math.Trunc(v) != v {
			return false, false
		}
		return int64(v) != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

// parseStrictInt parses a value as a strict integer.
// It accepts a raw value and returns the parsed int and an error when parsing fails.
func parseStrictInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if math.Trunc(v) != v {
			return 0, errors.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, errors.New("empty integer string")
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, errors.Wrap(err, "atoi")
		}
		return parsed, nil
	default:
		return 0, errors.Errorf("unsupported int type %T", value)
	}
}

// parseStrictString parses a value as a strict string.
// It accepts a raw value and returns the parsed string and an error when parsing fails.
func parseStrictString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", errors.Errorf("unsupported string type %T", value)
	}
}

// appendValidationError appends a formatted validation error to the collector.
// It accepts an error slice pointer, a format string, and format arguments, and has no return value.
func appendValidationError(errs *[]string, format string, args ...any) {
	if errs == nil {
		return
	}
	*errs = append(*errs, fmt.Sprintf(format, args...))
}
