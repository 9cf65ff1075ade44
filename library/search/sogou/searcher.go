package sogou

import (
	"context"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"golang.org/x/sync/semaphore"

	"github.com/Laisky/wechat-article-search/library/browser"
	appLog "github.com/Laisky/wechat-article-search/library/log"
	"github.com/Laisky/wechat-article-search/library/search"
)

// ErrNavigationTimeout means every navigation attempt exceeded its budget.
var ErrNavigationTimeout = errors.New("navigation timed out")

const (
	defaultNavigationTimeout = 20 * time.Second
	defaultNavigationTries   = 3
	defaultRetryBackoff      = 2 * time.Second
	defaultSelectorWait      = 10 * time.Second
)

// Session is the browser lifecycle the searcher depends on.
type Session interface {
	EnsureReady(ctx context.Context) (browser.Page, error)
	Recycle(ctx context.Context) (browser.Page, error)
	IsHealthy() bool
	Close()
	Stats() browser.Stats
}

// SearcherOption customises a Searcher during construction.
type SearcherOption func(*Searcher)

// WithLogger overrides the fallback logger used when no contextual logger is available.
func WithLogger(logger logSDK.Logger) SearcherOption {
	return func(s *Searcher) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock injects the time source.
func WithClock(clock func() time.Time) SearcherOption {
	return func(s *Searcher) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithRetryPolicy replaces the navigation retry policy.
// A policy without Retryable retries browser timeouts only.
func WithRetryPolicy(policy search.RetryPolicy) SearcherOption {
	return func(s *Searcher) {
		s.retry = policy
	}
}

// WithNavigationTimeout sets the per-attempt navigation budget.
func WithNavigationTimeout(d time.Duration) SearcherOption {
	return func(s *Searcher) {
		if d > 0 {
			s.navTimeout = d
		}
	}
}

// WithSelectorWait sets how long to wait for each result-container selector.
func WithSelectorWait(d time.Duration) SearcherOption {
	return func(s *Searcher) {
		if d > 0 {
			s.selectorWait = d
		}
	}
}

// WithWaitBudget bounds the total time spent waiting for result containers.
// Zero leaves only the per-selector bound.
func WithWaitBudget(d time.Duration) SearcherOption {
	return func(s *Searcher) {
		if d >= 0 {
			s.waitBudget = d
		}
	}
}

// Stats summarises the searches served so far.
type Stats struct {
	Searches     int                    `json:"searches"`
	Outcomes     map[search.Outcome]int `json:"outcomes"`
	LastOutcome  search.Outcome         `json:"last_outcome,omitempty"`
	LastSearchAt time.Time              `json:"last_search_at,omitempty"`
	Session      browser.Stats          `json:"session"`
}

// Searcher is the top-level search entry point. Searches are serialized
// through a single slot because they share one browser page.
type Searcher struct {
	session      Session
	extractor    *Extractor
	retry        search.RetryPolicy
	navTimeout   time.Duration
	selectorWait time.Duration
	waitBudget   time.Duration
	clock        func() time.Time
	logger       logSDK.Logger
	slot         *semaphore.Weighted

	mu       sync.Mutex
	searches int
	outcomes map[search.Outcome]int
	last     search.Outcome
	lastAt   time.Time
}

// NewSearcher constructs a Searcher driving session.
func NewSearcher(session Session, opts ...SearcherOption) (*Searcher, error) {
	if session == nil {
		return nil, errors.New("browser session is required")
	}

	s := &Searcher{
		session:      session,
		navTimeout:   defaultNavigationTimeout,
		selectorWait: defaultSelectorWait,
		clock:        time.Now,
		logger:       appLog.Logger.Named("sogou_searcher"),
		slot:         semaphore.NewWeighted(1),
		outcomes:     map[search.Outcome]int{},
		retry: search.RetryPolicy{
			MaxAttempts: defaultNavigationTries,
			Backoff:     search.ConstantBackoff(defaultRetryBackoff),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry.Retryable == nil {
		s.retry.Retryable = isBrowserTimeout
	}

	extractor, err := NewExtractor(
		WithBaseURL(BaseURL),
		WithExtractorClock(s.clock),
		WithExtractorLogger(s.logger.Named("extractor")),
	)
	if err != nil {
		return nil, errors.Wrap(err, "new extractor")
	}
	s.extractor = extractor

	return s, nil
}

// SearchArticles runs a search and returns only its articles, never nil.
func (s *Searcher) SearchArticles(ctx context.Context, query string, maxResults int, filter search.TimeFilter) []search.Article {
	return s.Search(ctx, search.Request{
		Query:      query,
		MaxResults: maxResults,
		TimeFilter: filter,
	}).Articles
}

// Search runs one query end to end. It never returns nil and never panics;
// failures are reported through Result.Outcome and Result.Err with an
// empty article list, and the browser session is recycled for the next call.
func (s *Searcher) Search(ctx context.Context, req search.Request) (res *search.Result) {
	start := s.clock()
	query := SanitizeQuery(req.Query)
	maxResults := ClampMaxResults(req.MaxResults)
	filter := req.TimeFilter
	if FilterCode(filter) == "" {
		filter = search.TimeFilterNone
	}

	res = search.NewResult(query, start)
	res.MaxResults = maxResults
	res.TimeFilter = filter

	logger := s.requestLogger(ctx).With(
		zap.Int("query_len", len([]rune(query))),
		zap.Int("max_results", maxResults),
		zap.String("time_filter", string(filter)),
	)

	defer func() {
		if r := recover(); r != nil {
			res.Articles = []search.Article{}
			res.Outcome = search.OutcomeFailed
			res.Err = errors.Errorf("search panic: %v", r)
			logger.Error("search panicked", zap.Any("panic", r))
		}

		res.Elapsed = s.clock().Sub(start)
		s.record(res)
		logger.Info("search finished",
			zap.String("outcome", string(res.Outcome)),
			zap.Int("count", len(res.Articles)),
			zap.Duration("elapsed", res.Elapsed))
	}()

	if query == "" {
		res.Outcome = search.OutcomeInvalid
		return res
	}

	if err := s.slot.Acquire(ctx, 1); err != nil {
		res.Outcome = search.OutcomeFailed
		res.Err = errors.Wrap(err, "wait for browser slot")
		return res
	}
	defer s.slot.Release(1)

	articles, outcome, err := s.runGuarded(ctx, logger, query, maxResults, filter)
	if err != nil {
		res.Outcome = outcome
		res.Err = err
		logger.Error("search failed", zap.Error(err))
		s.recoverSession(ctx, logger, err)
		return res
	}

	res.Articles = articles
	res.Outcome = outcome
	return res
}

// runGuarded turns a panic inside the pipeline into a failed outcome while
// the slot is still held, so the session gets recycled like any other failure.
func (s *Searcher) runGuarded(ctx context.Context, logger logSDK.Logger,
	query string, maxResults int, filter search.TimeFilter) (articles []search.Article, outcome search.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("search pipeline panicked", zap.Any("panic", r))
			articles, outcome = nil, search.OutcomeFailed
			err = errors.Errorf("search panic: %v", r)
		}
	}()

	return s.run(ctx, logger, query, maxResults, filter)
}

func (s *Searcher) run(ctx context.Context, logger logSDK.Logger,
	query string, maxResults int, filter search.TimeFilter) ([]search.Article, search.Outcome, error) {
	page, err := s.session.EnsureReady(ctx)
	if err != nil {
		return nil, search.OutcomeSessionError, errors.Wrap(err, "ensure browser session")
	}

	target := BuildSearchURL(BaseURL, query, filter)
	err = s.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		logger.Debug("navigating", zap.Int("attempt", attempt))
		if err := page.Navigate(ctx, target, s.navTimeout); err != nil {
			logger.Warn("navigation attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", s.retry.Attempts()),
				zap.Error(err))
			return err
		}
		return nil
	})
	switch {
	case err == nil:
	case isContextErr(err):
		return nil, search.OutcomeFailed, errors.Wrap(err, "navigate")
	case isBrowserTimeout(err):
		return nil, search.OutcomeNavigationError,
			errors.Wrapf(ErrNavigationTimeout, "after %d attempts: %v", s.retry.Attempts(), err)
	default:
		return nil, search.OutcomeNavigationError, errors.Wrap(err, "navigate")
	}

	s.waitForResults(ctx, logger, page)

	html, err := page.Content(ctx)
	if err != nil {
		return nil, search.OutcomeFailed, errors.Wrap(err, "read result page")
	}

	extraction, err := s.extractor.ExtractHTML(html, maxResults)
	if err != nil {
		return nil, search.OutcomeFailed, errors.Wrap(err, "extract articles")
	}
	if extraction.Skipped > 0 {
		logger.Debug("skipped result elements", zap.Int("skipped", extraction.Skipped))
	}

	switch {
	case len(extraction.Articles) == 0:
		return extraction.Articles, search.OutcomeEmpty, nil
	case extraction.Fallback:
		return extraction.Articles, search.OutcomeFallback, nil
	default:
		logger.Debug("results located", zap.String("selector", extraction.Strategy))
		return extraction.Articles, search.OutcomeOK, nil
	}
}

// waitForResults waits for the first result container to show up.
// A page that never shows one is still extracted.
func (s *Searcher) waitForResults(ctx context.Context, logger logSDK.Logger, page browser.Page) {
	var deadline time.Time
	if s.waitBudget > 0 {
		deadline = s.clock().Add(s.waitBudget)
	}

	for _, sel := range waitSelectors {
		if ctx.Err() != nil {
			return
		}

		wait := s.selectorWait
		if !deadline.IsZero() {
			remaining := deadline.Sub(s.clock())
			if remaining <= 0 {
				break
			}
			if remaining < wait {
				wait = remaining
			}
		}

		if err := page.WaitForSelector(ctx, sel.Pattern, wait); err == nil {
			logger.Debug("result container appeared", zap.String("selector", sel.Pattern))
			return
		}
	}

	logger.Warn("no result container appeared, extracting anyway")
}

// recoverSession recycles the browser so the next search starts clean.
func (s *Searcher) recoverSession(ctx context.Context, logger logSDK.Logger, cause error) {
	if isContextErr(cause) {
		return
	}

	if _, err := s.session.Recycle(context.WithoutCancel(ctx)); err != nil {
		logger.Error("recycle browser session", zap.Error(err))
		return
	}
	logger.Info("browser session recycled")
}

// Warmup launches the browser ahead of the first search.
func (s *Searcher) Warmup(ctx context.Context) error {
	if err := s.slot.Acquire(ctx, 1); err != nil {
		return errors.Wrap(err, "wait for browser slot")
	}
	defer s.slot.Release(1)

	if _, err := s.session.EnsureReady(ctx); err != nil {
		return errors.Wrap(err, "warm up browser")
	}
	return nil
}

// Heal relaunches the browser if it reports itself disconnected.
// It reports whether a relaunch happened.
func (s *Searcher) Heal(ctx context.Context) (bool, error) {
	if err := s.slot.Acquire(ctx, 1); err != nil {
		return false, errors.Wrap(err, "wait for browser slot")
	}
	defer s.slot.Release(1)

	if s.session.IsHealthy() {
		return false, nil
	}
	if _, err := s.session.EnsureReady(ctx); err != nil {
		return true, errors.Wrap(err, "heal browser")
	}
	return true, nil
}

// Restart closes the browser and launches a fresh one.
func (s *Searcher) Restart(ctx context.Context) error {
	if err := s.slot.Acquire(ctx, 1); err != nil {
		return errors.Wrap(err, "wait for browser slot")
	}
	defer s.slot.Release(1)

	if _, err := s.session.Recycle(ctx); err != nil {
		return errors.Wrap(err, "restart browser")
	}
	return nil
}

// Close waits for the running search, bounded by ctx, then closes the browser.
func (s *Searcher) Close(ctx context.Context) {
	if err := s.slot.Acquire(ctx, 1); err != nil {
		s.logger.Warn("closing browser while a search is running", zap.Error(err))
		s.session.Close()
		return
	}
	defer s.slot.Release(1)

	s.session.Close()
}

// IsHealthy reports the browser connectivity.
func (s *Searcher) IsHealthy() bool {
	return s.session.IsHealthy()
}

// Stats returns a snapshot of search and session counters.
func (s *Searcher) Stats() Stats {
	s.mu.Lock()
	outcomes := make(map[search.Outcome]int, len(s.outcomes))
	for k, v := range s.outcomes {
		outcomes[k] = v
	}
	st := Stats{
		Searches:     s.searches,
		Outcomes:     outcomes,
		LastOutcome:  s.last,
		LastSearchAt: s.lastAt,
	}
	s.mu.Unlock()

	st.Session = s.session.Stats()
	return st
}

func (s *Searcher) record(res *search.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.searches++
	s.outcomes[res.Outcome]++
	s.last = res.Outcome
	s.lastAt = res.StartedAt
}

// requestLogger prefers the gin request logger. gmw.GetLogger falls back to a
// stdout logger for plain contexts, so it is only consulted inside a request.
func (s *Searcher) requestLogger(ctx context.Context) logSDK.Logger {
	if ctx == nil {
		return s.logger
	}
	if _, ok := gmw.GetGinCtxFromStdCtx(ctx); !ok {
		return s.logger
	}
	return gmw.GetLogger(ctx).Named("sogou_searcher")
}

func isBrowserTimeout(err error) bool {
	return errors.Is(err, browser.ErrTimeout)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
