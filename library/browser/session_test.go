package browser_test

import (
	"context"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/wechat-article-search/library/browser"
	"github.com/Laisky/wechat-article-search/library/browser/browsertest"
)

func mustSession(t *testing.T, launcher browser.Launcher, opts ...browser.SessionOption) *browser.Session {
	t.Helper()

	s, err := browser.NewSession(launcher, opts...)
	require.NoError(t, err)
	return s
}

func TestNewSessionRequiresLauncher(t *testing.T) {
	s, err := browser.NewSession(nil)
	require.Error(t, err)
	require.Nil(t, s)
}

func TestEnsureReadyIsIdempotent(t *testing.T) {
	page := browsertest.NewPage("<html></html>")
	launcher := browsertest.NewLauncher(page)
	s := mustSession(t, launcher)

	require.False(t, s.IsHealthy())

	first, err := s.EnsureReady(context.Background())
	require.NoError(t, err)
	second, err := s.EnsureReady(context.Background())
	require.NoError(t, err)

	require.Same(t, first, second)
	require.Equal(t, 1, launcher.Launches())
	require.True(t, s.IsHealthy())
}

func TestEnsureReadyRelaunchesAfterDisconnect(t *testing.T) {
	launcher := browsertest.NewLauncher(browsertest.NewPage(""))
	s := mustSession(t, launcher)

	_, err := s.EnsureReady(context.Background())
	require.NoError(t, err)
	old := launcher.Last()
	old.Disconnect()
	require.False(t, s.IsHealthy())

	_, err = s.EnsureReady(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, launcher.Launches())
	require.Equal(t, []string{"context", "page", "browser", "driver"}, old.ClosedSteps())
	require.True(t, s.IsHealthy())
}

func TestCloseReleasesInOrderAndSwallowsErrors(t *testing.T) {
	launcher := browsertest.NewLauncher(browsertest.NewPage(""))
	s := mustSession(t, launcher)

	_, err := s.EnsureReady(context.Background())
	require.NoError(t, err)
	inst := launcher.Last()
	inst.FailClose("page", errors.New("page already gone"))
	inst.FailClose("driver", errors.New("driver crashed"))

	s.Close()
	require.Equal(t, []string{"context", "page", "browser", "driver"}, inst.ClosedSteps())
	require.False(t, s.IsHealthy())

	// closing twice is harmless
	s.Close()
	require.Len(t, inst.ClosedSteps(), 4)
}

func TestLaunchFailureTearsDownPartialInstance(t *testing.T) {
	partial := browsertest.NewInstance(nil)
	launcher := &browsertest.Launcher{Err: errors.New("chromium missing"), Partial: partial}
	s := mustSession(t, launcher)

	page, err := s.EnsureReady(context.Background())
	require.Nil(t, page)
	require.ErrorIs(t, err, browser.ErrSession)
	require.Equal(t, []string{"context", "page", "browser", "driver"}, partial.ClosedSteps())

	stats := s.Stats()
	require.False(t, stats.Connected)
	require.Equal(t, 0, stats.Launches)
	require.Equal(t, 1, stats.LaunchFailures)
	require.Contains(t, stats.LastError, "chromium missing")
}

func TestRecycleReplacesInstance(t *testing.T) {
	launcher := browsertest.NewLauncher(browsertest.NewPage(""))
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	s := mustSession(t, launcher, browser.WithClock(func() time.Time { return now }))

	_, err := s.EnsureReady(context.Background())
	require.NoError(t, err)
	first := launcher.Last()

	_, err = s.Recycle(context.Background())
	require.NoError(t, err)
	require.NotSame(t, first, launcher.Last())
	require.Len(t, first.ClosedSteps(), 4)

	stats := s.Stats()
	require.True(t, stats.Connected)
	require.Equal(t, 2, stats.Launches)
	require.Equal(t, now, stats.LastLaunchAt)
}

func TestLaunchConfigCarriesHardenedOptions(t *testing.T) {
	launcher := browsertest.NewLauncher(browsertest.NewPage(""))
	opts := browser.DefaultOptions()
	opts.Proxy = "http://127.0.0.1:7890"
	s := mustSession(t, launcher, browser.WithOptions(opts))

	_, err := s.EnsureReady(context.Background())
	require.NoError(t, err)

	require.Len(t, launcher.Configs, 1)
	cfg := launcher.Configs[0]
	require.Equal(t, browser.UserAgents[0], cfg.UserAgent)
	require.False(t, cfg.JavaScriptEnabled)
	require.True(t, cfg.IgnoreHTTPSErrors)
	require.Equal(t, browser.Viewport{Width: 1920, Height: 1080}, cfg.Viewport)
	require.Equal(t, "http://127.0.0.1:7890", cfg.Proxy)

	args := cfg.LaunchArgs(cfg.UserAgent)
	require.Contains(t, args, "--no-sandbox")
	require.Contains(t, args, "--disable-blink-features=AutomationControlled")
	require.Contains(t, args, "--user-agent="+browser.UserAgents[0])
}

func TestRecycleRotatesUserAgent(t *testing.T) {
	launcher := browsertest.NewLauncher(browsertest.NewPage(""))
	opts := browser.DefaultOptions()
	opts.RotateUserAgent = true
	s := mustSession(t, launcher, browser.WithOptions(opts))
	ctx := context.Background()

	_, err := s.EnsureReady(ctx)
	require.NoError(t, err)
	_, err = s.Recycle(ctx)
	require.NoError(t, err)

	require.Len(t, launcher.Configs, 2)
	require.Equal(t, browser.UserAgents[0], launcher.Configs[0].UserAgent)
	require.Equal(t, browser.UserAgents[1], launcher.Configs[1].UserAgent)
	require.Equal(t, browser.UserAgents[1], s.Stats().UserAgent)
}

func TestEnsureReadyCancelledContext(t *testing.T) {
	launcher := browsertest.NewLauncher(browsertest.NewPage(""))
	s := mustSession(t, launcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.EnsureReady(ctx)
	require.ErrorIs(t, err, browser.ErrSession)
	require.Zero(t, launcher.Launches())
}
