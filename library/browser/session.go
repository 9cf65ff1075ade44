// Package browser owns the headless browser used to load search result pages.
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	appLog "github.com/Laisky/wechat-article-search/library/log"
)

var (
	// ErrSession means the browser or its context could not be created or is unreachable.
	ErrSession = errors.New("browser session unavailable")
	// ErrTimeout means a page operation exceeded its time budget.
	ErrTimeout = errors.New("browser operation timed out")
)

// Page is the navigable handle a session hands to its callers.
type Page interface {
	// Navigate loads url and waits for the DOM to be parsed.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// WaitForSelector blocks until selector matches or timeout elapses.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	// Content returns the current serialized DOM.
	Content(ctx context.Context) (string, error)
}

// Instance is one launched browser with a single context and page.
// The close methods must tolerate resources that were never created.
type Instance interface {
	Page() Page
	IsConnected() bool
	CloseContext() error
	ClosePage() error
	CloseBrowser() error
	StopDriver() error
}

// Launcher starts browser instances.
// On failure it may return a partially built Instance alongside the error,
// which the session tears down.
type Launcher interface {
	Launch(ctx context.Context, cfg LaunchConfig) (Instance, error)
}

// SessionOption customises a Session during construction.
type SessionOption func(*Session)

// WithLogger overrides the session logger.
func WithLogger(logger logSDK.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOptions sets the launch configuration.
func WithOptions(opts Options) SessionOption {
	return func(s *Session) {
		s.opts = opts
	}
}

// WithClock injects the time source used for stats.
func WithClock(clock func() time.Time) SessionOption {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// Stats is a snapshot of the session lifecycle.
type Stats struct {
	Connected      bool      `json:"connected"`
	Launches       int       `json:"launches"`
	LaunchFailures int       `json:"launch_failures"`
	LastLaunchAt   time.Time `json:"last_launch_at,omitempty"`
	LastError      string    `json:"last_error,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
}

// Session exclusively owns one browser instance and recreates it on failure.
// Its methods are safe for concurrent use, but callers that navigate must
// serialize their whole navigate-and-read sequence themselves.
type Session struct {
	launcher Launcher
	opts     Options
	logger   logSDK.Logger
	clock    func() time.Time

	mu             sync.Mutex
	inst           Instance
	launches       int
	launchFailures int
	lastLaunchAt   time.Time
	lastError      string
	userAgent      string
}

// NewSession constructs a Session. No browser is started until EnsureReady.
func NewSession(launcher Launcher, opts ...SessionOption) (*Session, error) {
	if launcher == nil {
		return nil, errors.New("browser launcher is required")
	}

	s := &Session{
		launcher: launcher,
		opts:     DefaultOptions(),
		logger:   appLog.Logger.Named("browser_session"),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// EnsureReady returns the live page, launching a browser when none exists or
// the existing one has disconnected. Calling it while connected is a no-op.
func (s *Session) EnsureReady(ctx context.Context) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inst != nil {
		if s.inst.IsConnected() {
			return s.inst.Page(), nil
		}

		s.logger.Warn("browser disconnected, recreating session")
		s.teardownLocked()
	}

	return s.launchLocked(ctx)
}

// Recycle closes the current browser, if any, and launches a fresh one.
func (s *Session) Recycle(ctx context.Context) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardownLocked()
	return s.launchLocked(ctx)
}

// IsHealthy reports whether a browser exists and reports itself connected.
func (s *Session) IsHealthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inst != nil && s.inst.IsConnected()
}

// Close releases the context, page, browser and driver in that order.
// Errors are logged and never returned.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardownLocked()
}

// Stats returns a snapshot of the session lifecycle counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Connected:      s.inst != nil && s.inst.IsConnected(),
		Launches:       s.launches,
		LaunchFailures: s.launchFailures,
		LastLaunchAt:   s.lastLaunchAt,
		LastError:      s.lastError,
		UserAgent:      s.userAgent,
	}
}

func (s *Session) launchLocked(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(ErrSession, "launch cancelled: %v", err)
	}

	userAgent := s.opts.UserAgentFor(s.launches + s.launchFailures)
	logger := s.logger.With(zap.Int("launch", s.launches+1))
	logger.Info("launching browser",
		zap.Bool("headless", s.opts.Headless),
		zap.Bool("proxy", s.opts.Proxy != ""))

	inst, err := s.launcher.Launch(ctx, LaunchConfig{Options: s.opts, UserAgent: userAgent})
	if err != nil {
		s.launchFailures++
		s.lastError = err.Error()
		logger.Error("launch browser", zap.Error(err))
		if inst != nil {
			s.teardown(inst)
		}
		return nil, errors.Wrapf(ErrSession, "launch browser: %v", err)
	}
	if inst == nil || inst.Page() == nil {
		s.launchFailures++
		s.lastError = "launcher returned no page"
		if inst != nil {
			s.teardown(inst)
		}
		return nil, errors.Wrap(ErrSession, "launcher returned no page")
	}

	s.inst = inst
	s.launches++
	s.lastLaunchAt = s.clock()
	s.lastError = ""
	s.userAgent = userAgent
	logger.Info("browser ready")

	return inst.Page(), nil
}

func (s *Session) teardownLocked() {
	if s.inst == nil {
		return
	}

	inst := s.inst
	s.inst = nil
	s.teardown(inst)
}

func (s *Session) teardown(inst Instance) {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"context", inst.CloseContext},
		{"page", inst.ClosePage},
		{"browser", inst.CloseBrowser},
		{"driver", inst.StopDriver},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			s.logger.Warn("close browser resource",
				zap.String("resource", step.name), zap.Error(err))
			continue
		}
		s.logger.Debug("closed browser resource", zap.String("resource", step.name))
	}
}
