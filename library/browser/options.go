package browser

import (
	"time"
)

// UserAgents is the fixed pool of desktop user agents a session may present.
var UserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// BlockedResourceTypes are aborted by the request interceptor.
var BlockedResourceTypes = []string{"image", "media", "font", "stylesheet", "script"}

// baseLaunchArgs harden chromium for containers and hide automation markers.
var baseLaunchArgs = []string{
	"--no-sandbox",
	"--disable-blink-features=AutomationControlled",
	"--disable-extensions",
	"--disable-plugins",
	"--disable-images",
	"--disable-javascript",
}

// Viewport is the browser window size in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

// Options is the launch configuration of a browser session.
type Options struct {
	Headless bool
	// Proxy is an optional proxy server URL, e.g. http://127.0.0.1:7890.
	Proxy             string
	UserAgentIndex    int
	RotateUserAgent   bool
	Viewport          Viewport
	DefaultTimeout    time.Duration
	IgnoreHTTPSErrors bool
	JavaScriptEnabled bool
	BlockedResources  []string
}

// DefaultOptions returns the hardened configuration used in production.
func DefaultOptions() Options {
	return Options{
		Headless:          true,
		Viewport:          Viewport{Width: 1920, Height: 1080},
		DefaultTimeout:    30 * time.Second,
		IgnoreHTTPSErrors: true,
		JavaScriptEnabled: false,
		BlockedResources:  append([]string(nil), BlockedResourceTypes...),
	}
}

// UserAgentFor picks the user agent for the n-th launch (0-based).
// Without rotation every launch uses UserAgentIndex.
func (o Options) UserAgentFor(launch int) string {
	idx := o.UserAgentIndex
	if o.RotateUserAgent {
		idx += launch
	}
	n := len(UserAgents)
	idx %= n
	if idx < 0 {
		idx += n
	}
	return UserAgents[idx]
}

// LaunchArgs returns the chromium command line flags for the given user agent.
func (o Options) LaunchArgs(userAgent string) []string {
	args := append([]string(nil), baseLaunchArgs...)
	if userAgent != "" {
		args = append(args, "--user-agent="+userAgent)
	}
	return args
}

// LaunchConfig is what a Launcher receives for one launch.
type LaunchConfig struct {
	Options
	UserAgent string
}
