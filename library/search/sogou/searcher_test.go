package sogou_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/Laisky/zap/zapcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/wechat-article-search/library/browser"
	"github.com/Laisky/wechat-article-search/library/browser/browsertest"
	"github.com/Laisky/wechat-article-search/library/search"
	"github.com/Laisky/wechat-article-search/library/search/sogou"
)

var searchNow = time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC)

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func (r *recordingSleeper) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

type harness struct {
	page     *browsertest.Page
	launcher *browsertest.Launcher
	session  *browser.Session
	sleeper  *recordingSleeper
	searcher *sogou.Searcher
}

func mustFixtureHTML(t *testing.T, name string) string {
	t.Helper()

	raw, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(raw)
}

func newHarness(t *testing.T, page browser.Page, fake *browsertest.Page, opts ...sogou.SearcherOption) *harness {
	t.Helper()

	h := &harness{page: fake, sleeper: &recordingSleeper{}}
	h.launcher = browsertest.NewLauncher(page)

	session, err := browser.NewSession(h.launcher)
	require.NoError(t, err)
	h.session = session

	searcher, err := sogou.NewSearcher(session, append([]sogou.SearcherOption{
		sogou.WithClock(func() time.Time { return searchNow }),
		sogou.WithSelectorWait(time.Millisecond),
		sogou.WithRetryPolicy(search.RetryPolicy{
			MaxAttempts: 3,
			Backoff:     search.ConstantBackoff(2 * time.Second),
			Sleep:       h.sleeper.Sleep,
		}),
	}, opts...)...)
	require.NoError(t, err)
	h.searcher = searcher

	return h
}

func mustHarness(t *testing.T, fixture string, present ...string) *harness {
	t.Helper()

	page := browsertest.NewPage(mustFixtureHTML(t, fixture), present...)
	return newHarness(t, page, page)
}

func timeoutErr() error {
	return errors.Wrap(browser.ErrTimeout, "Timeout 20000ms exceeded")
}

func TestSearchInvalidQueryNeverTouchesBrowser(t *testing.T) {
	h := mustHarness(t, "results.html")

	for _, q := range []string{"", "   ", `<>"'`} {
		res := h.searcher.Search(context.Background(), search.Request{Query: q, MaxResults: 5})
		require.Equal(t, search.OutcomeInvalid, res.Outcome)
		require.NotNil(t, res.Articles)
		require.Empty(t, res.Articles)
	}

	require.Zero(t, h.launcher.Launches())
	require.Zero(t, h.page.NavigationCount())
}

func TestSearchReturnsArticles(t *testing.T) {
	h := mustHarness(t, "results.html", ".news-list")

	res := h.searcher.Search(context.Background(), search.Request{
		Query:      "golang",
		MaxResults: 10,
		TimeFilter: search.TimeFilterWeek,
	})
	require.NoError(t, res.Err)
	require.Equal(t, search.OutcomeOK, res.Outcome)
	require.Len(t, res.Articles, 3)
	require.Equal(t, "golang", res.Query)
	require.Equal(t, search.TimeFilterWeek, res.TimeFilter)

	require.Equal(t, 1, h.page.NavigationCount())
	nav := h.page.Navigations[0]
	require.Contains(t, nav, sogou.BaseURL+"/weixin?")
	require.Contains(t, nav, "query=golang")
	require.Contains(t, nav, "type=2")
	require.Contains(t, nav, "tsn=7")

	// waiting stops at the first selector that appears
	require.Equal(t, []string{".results", ".news-list"}, h.page.Waited)
	require.Equal(t, 1, h.launcher.Launches())
}

func TestSearchNormalizesRequest(t *testing.T) {
	h := mustHarness(t, "results.html", ".news-list")

	res := h.searcher.Search(context.Background(), search.Request{
		Query:      "  golang  ",
		MaxResults: 999,
		TimeFilter: search.TimeFilter("decade"),
	})
	require.Equal(t, "golang", res.Query)
	require.Equal(t, sogou.MaxResults, res.MaxResults)
	require.Equal(t, search.TimeFilterNone, res.TimeFilter)
	require.NotContains(t, h.page.Navigations[0], "tsn=")
}

func TestSearchExtractsWithoutResultContainer(t *testing.T) {
	h := mustHarness(t, "results.html")

	res := h.searcher.Search(context.Background(), search.Request{Query: "golang", MaxResults: 5})
	require.Equal(t, search.OutcomeOK, res.Outcome)
	require.Len(t, res.Articles, 3)
	require.Len(t, h.page.Waited, len(sogou.WaitSelectors()))
}

func TestSearchRetriesNavigationTimeouts(t *testing.T) {
	h := mustHarness(t, "results.html", ".news-list")
	h.page.NavigateErrs = []error{timeoutErr(), nil}

	res := h.searcher.Search(context.Background(), search.Request{Query: "golang", MaxResults: 5})
	require.Equal(t, search.OutcomeOK, res.Outcome)
	require.Equal(t, 2, h.page.NavigationCount())
	require.Equal(t, []time.Duration{2 * time.Second}, h.sleeper.Delays())
}

func TestSearchNavigationTimeoutExhausted(t *testing.T) {
	h := mustHarness(t, "results.html", ".news-list")
	h.page.NavigateErrs = []error{timeoutErr(), timeoutErr(), timeoutErr()}

	res := h.searcher.Search(context.Background(), search.Request{Query: "golang", MaxResults: 5})
	require.Equal(t, search.OutcomeNavigationError, res.Outcome)
	require.True(t, res.Outcome.Failed())
	require.True(t, errors.Is(res.Err, sogou.ErrNavigationTimeout))
	require.Empty(t, res.Articles)

	require.Equal(t, 3, h.page.NavigationCount())
	require.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, h.sleeper.Delays())

	// the session is recycled after the failure
	require.Equal(t, 2, h.launcher.Launches())
	require.Equal(t, []string{"context", "page", "browser", "driver"}, h.launcher.Instances[0].ClosedSteps())

	// the next search works on the fresh browser
	res = h.searcher.Search(context.Background(), search.Request{Query: "golang", MaxResults: 5})
	require.Equal(t, search.OutcomeOK, res.Outcome)
}

func TestSearchDoesNotRetryOtherNavigationErrors(t *testing.T) {
	h := mustHarness(t, "results.html", ".news-list")
	h.page.NavigateErrs = []error{errors.New("net::ERR_PROXY_CONNECTION_FAILED")}

	res := h.searcher.Search(context.Background(), search.Request{Query: "golang", MaxResults: 5})
	require.Equal(t, search.OutcomeNavigationError, res.Outcome)
	require.False(t, errors.Is(res.Err, sogou.ErrNavigationTimeout))
	require.Equal(t, 1, h.page.NavigationCount())
	require.Empty(t, h.sleeper.Delays())
}

func TestSearchSessionError(t *testing.T) {
	h := mustHarness(t, "results.html", ".news-list")
	h.launcher.SetErr(errors.New("executable doesn't exist"))

	res := h.searcher.Search(context.Background(), search.Request{Query: "golang", MaxResults: 5})
	require.Equal(t, search.OutcomeSessionError, res.Outcome)
	require.True(t, errors.Is(res.Err, browser.ErrSession))
	require.NotNil(t, res.Articles)
	require.Empty(t, res.Articles)
	require.Zero(t, h.page.NavigationCount())

	articles := h.searcher.SearchArticles(context.Background(), "golang", 5, search.TimeFilterNone)
	require.NotNil(t, articles)
	require.Empty(t, articles)
}

func TestSearchContentError(t *testing.T) {
	h := mustHarness(t, "results.html", ".news-list")
	h.page.ContentErr = errors.New("target closed")

	res := h.searcher.Search(context.Background(), search.Request{Query: "golang", MaxResults: 5})
	require.Equal(t, search.OutcomeFailed, res.Outcome)
	require.Error(t, res.Err)
	require.Empty(t, res.Articles)
}

func TestSearchRelaunchesDisconnectedBrowser(t *testing.T) {
	h := mustHarness(t, "results.html", ".news-list")
	ctx := context.Background()

	res := h.searcher.Search(ctx, search.Request{Query: "golang", MaxResults: 5})
	require.Equal(t, search.OutcomeOK, res.Outcome)
	require.Equal(t, 1, h.launcher.Launches())

	first := h.launcher.Last()
	first.Disconnect()
	require.False(t, h.searcher.IsHealthy())

	res = h.searcher.Search(ctx, search.Request{Query: "golang", MaxResults: 5})
	require.Equal(t, search.OutcomeOK, res.Outcome)
	require.Equal(t, 2, h.launcher.Launches())
	require.Equal(t, []string{"context", "page", "browser", "driver"}, first.ClosedSteps())
	require.Equal(t, 2, h.page.NavigationCount())
	require.True(t, h.searcher.IsHealthy())
}

func TestSearchFallbackAndEmptyOutcomes(t *testing.T) {
	h := mustHarness(t, "fallback.html")
	res := h.searcher.Search(context.Background(), search.Request{Query: "golang", MaxResults: 5})
	require.Equal(t, search.OutcomeFallback, res.Outcome)
	require.Len(t, res.Articles, 5)
	require.False(t, res.Outcome.Failed())

	h = mustHarness(t, "empty.html")
	res = h.searcher.Search(context.Background(), search.Request{Query: "zzzz", MaxResults: 5})
	require.Equal(t, search.OutcomeEmpty, res.Outcome)
	require.NoError(t, res.Err)
	require.NotNil(t, res.Articles)
	require.Empty(t, res.Articles)
	// an empty page is not a failure, so the browser is kept
	require.Equal(t, 1, h.launcher.Launches())
}

// concurrencyPage counts how many navigations overlap.
type concurrencyPage struct {
	*browsertest.Page
	inFlight int32
	peak     int32
}

func (p *concurrencyPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	n := atomic.AddInt32(&p.inFlight, 1)
	defer atomic.AddInt32(&p.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&p.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&p.peak, peak, n) {
			break
		}
	}

	time.Sleep(10 * time.Millisecond)
	return p.Page.Navigate(ctx, url, timeout)
}

func TestSearchSerializesCallers(t *testing.T) {
	fake := browsertest.NewPage(mustFixtureHTML(t, "results.html"), ".news-list")
	page := &concurrencyPage{Page: fake}
	h := newHarness(t, page, fake)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := h.searcher.Search(context.Background(), search.Request{Query: "golang", MaxResults: 5})
			assert.Equal(t, search.OutcomeOK, res.Outcome)
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&page.peak))
	require.Equal(t, 5, fake.NavigationCount())
	require.Equal(t, 1, h.launcher.Launches())
}

func TestSearcherStats(t *testing.T) {
	h := mustHarness(t, "results.html", ".news-list")
	ctx := context.Background()

	h.searcher.Search(ctx, search.Request{Query: "golang", MaxResults: 5})
	h.searcher.Search(ctx, search.Request{Query: "", MaxResults: 5})

	st := h.searcher.Stats()
	require.Equal(t, 2, st.Searches)
	require.Equal(t, 1, st.Outcomes[search.OutcomeOK])
	require.Equal(t, 1, st.Outcomes[search.OutcomeInvalid])
	require.Equal(t, search.OutcomeInvalid, st.LastOutcome)
	require.Equal(t, searchNow, st.LastSearchAt)
	require.True(t, st.Session.Connected)
	require.Equal(t, 1, st.Session.Launches)
}

func TestSearcherHealAndRestart(t *testing.T) {
	h := mustHarness(t, "results.html", ".news-list")
	ctx := context.Background()

	require.NoError(t, h.searcher.Warmup(ctx))
	require.Equal(t, 1, h.launcher.Launches())

	healed, err := h.searcher.Heal(ctx)
	require.NoError(t, err)
	require.False(t, healed)

	h.launcher.Last().Disconnect()
	healed, err = h.searcher.Heal(ctx)
	require.NoError(t, err)
	require.True(t, healed)
	require.Equal(t, 2, h.launcher.Launches())

	previous := h.launcher.Last()
	require.NoError(t, h.searcher.Restart(ctx))
	require.Equal(t, 3, h.launcher.Launches())
	require.Equal(t, []string{"context", "page", "browser", "driver"}, previous.ClosedSteps())

	h.searcher.Close(ctx)
	require.False(t, h.searcher.IsHealthy())
}

func TestSearcherRequiresSession(t *testing.T) {
	_, err := sogou.NewSearcher(nil)
	require.Error(t, err)
}

// steppingClock is a manual clock shared between a searcher and a fake page.
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *steppingClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// slowPage lets every selector wait run to its full timeout on the clock.
type slowPage struct {
	*browsertest.Page
	clock *steppingClock
	waits []time.Duration
}

func (p *slowPage) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	p.waits = append(p.waits, timeout)
	p.clock.Advance(timeout)
	return p.Page.WaitForSelector(ctx, selector, timeout)
}

func TestSearchWaitBudgetBoundsSelectorWaits(t *testing.T) {
	clock := &steppingClock{now: searchNow}
	fake := browsertest.NewPage(mustFixtureHTML(t, "results.html"))
	page := &slowPage{Page: fake, clock: clock}
	h := newHarness(t, page, fake,
		sogou.WithClock(clock.Now),
		sogou.WithSelectorWait(10*time.Second),
		sogou.WithWaitBudget(15*time.Second),
	)

	res := h.searcher.Search(context.Background(), search.Request{Query: "golang", MaxResults: 5})
	require.Equal(t, search.OutcomeOK, res.Outcome)
	require.Len(t, res.Articles, 3)

	// the second wait gets what is left of the budget, then waiting stops
	require.Equal(t, []time.Duration{10 * time.Second, 5 * time.Second}, page.waits)
	require.Len(t, fake.Waited, 2)
}

func TestSearchWithoutWaitBudgetTriesEverySelector(t *testing.T) {
	clock := &steppingClock{now: searchNow}
	fake := browsertest.NewPage(mustFixtureHTML(t, "results.html"))
	page := &slowPage{Page: fake, clock: clock}
	h := newHarness(t, page, fake,
		sogou.WithClock(clock.Now),
		sogou.WithSelectorWait(10*time.Second),
	)

	res := h.searcher.Search(context.Background(), search.Request{Query: "golang", MaxResults: 5})
	require.Equal(t, search.OutcomeOK, res.Outcome)
	require.Len(t, page.waits, len(sogou.WaitSelectors()))
	for _, w := range page.waits {
		require.Equal(t, 10*time.Second, w)
	}
}

// panickingPage panics on Navigate while armed.
type panickingPage struct {
	*browsertest.Page
	armed atomic.Bool
}

func (p *panickingPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if p.armed.Load() {
		panic("page crashed")
	}
	return p.Page.Navigate(ctx, url, timeout)
}

func TestSearchPanicRecyclesSession(t *testing.T) {
	fake := browsertest.NewPage(mustFixtureHTML(t, "results.html"), ".news-list")
	page := &panickingPage{Page: fake}
	page.armed.Store(true)
	h := newHarness(t, page, fake)
	ctx := context.Background()

	res := h.searcher.Search(ctx, search.Request{Query: "golang", MaxResults: 5})
	require.Equal(t, search.OutcomeFailed, res.Outcome)
	require.ErrorContains(t, res.Err, "page crashed")
	require.NotNil(t, res.Articles)
	require.Empty(t, res.Articles)

	require.Equal(t, 2, h.launcher.Launches())
	require.Equal(t, []string{"context", "page", "browser", "driver"}, h.launcher.Instances[0].ClosedSteps())

	// the fresh browser serves the next search and the slot was released
	page.armed.Store(false)
	res = h.searcher.Search(ctx, search.Request{Query: "golang", MaxResults: 5})
	require.Equal(t, search.OutcomeOK, res.Outcome)
	require.Equal(t, 2, h.launcher.Launches())
}

// entryRecorder keeps the logger name and message of every log entry.
type entryRecorder struct {
	mu      sync.Mutex
	entries []zapcore.Entry
}

func (r *entryRecorder) hook(e zapcore.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *entryRecorder) loggerFor(msg string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Message == msg {
			return e.LoggerName, true
		}
	}
	return "", false
}

func TestSearchLogsThroughInjectedLogger(t *testing.T) {
	rec := &entryRecorder{}
	logger, err := logSDK.New(
		logSDK.WithName("searcher_under_test"),
		logSDK.WithLevel(logSDK.LevelInfo),
		logSDK.WithOutputPaths([]string{"stderr"}),
		logSDK.WithZapOptions(zap.Hooks(rec.hook)),
	)
	require.NoError(t, err)

	h := mustHarness(t, "results.html", ".news-list")
	searcher, err := sogou.NewSearcher(h.session, sogou.WithLogger(logger))
	require.NoError(t, err)

	res := searcher.Search(context.Background(), search.Request{Query: "golang", MaxResults: 5})
	require.Equal(t, search.OutcomeOK, res.Outcome)

	name, ok := rec.loggerFor("search finished")
	require.True(t, ok, "search summary should reach the injected logger")
	require.Equal(t, "searcher_under_test", name)
}
