package cmd

import (
	"github.com/Laisky/errors/v2"

	"github.com/Laisky/wechat-article-search/library/browser"
	"github.com/Laisky/wechat-article-search/library/config"
	"github.com/Laisky/wechat-article-search/library/log"
	"github.com/Laisky/wechat-article-search/library/search"
	"github.com/Laisky/wechat-article-search/library/search/sogou"
)

// browserOptions maps typed settings onto the hardened launch configuration.
func browserOptions(s config.BrowserSettings) browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = s.Headless
	opts.Proxy = s.Proxy
	opts.UserAgentIndex = s.UserAgentIndex
	opts.RotateUserAgent = s.RotateUserAgent
	if s.DefaultTimeout > 0 {
		opts.DefaultTimeout = s.DefaultTimeout
	}

	return opts
}

// searcherOptions maps typed settings onto the search pipeline budgets.
func searcherOptions(s config.SearchSettings) []sogou.SearcherOption {
	return []sogou.SearcherOption{
		sogou.WithLogger(log.Logger.Named("sogou_searcher")),
		sogou.WithNavigationTimeout(s.NavigationTimeout),
		sogou.WithSelectorWait(s.SelectorWait),
		sogou.WithWaitBudget(s.WaitBudget),
		sogou.WithRetryPolicy(search.RetryPolicy{
			MaxAttempts: s.NavigationAttempts,
			Backoff:     search.ConstantBackoff(s.RetryBackoff),
		}),
	}
}

// newSearcher wires a playwright backed session into a sogou searcher.
// The browser is launched lazily by the first search or by Warmup.
func newSearcher(settings config.Settings) (*sogou.Searcher, error) {
	session, err := browser.NewSession(
		browser.NewPlaywrightLauncher(log.Logger.Named("playwright")),
		browser.WithLogger(log.Logger.Named("browser_session")),
		browser.WithOptions(browserOptions(settings.Browser)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "new browser session")
	}

	searcher, err := sogou.NewSearcher(session, searcherOptions(settings.Search)...)
	if err != nil {
		return nil, errors.Wrap(err, "new sogou searcher")
	}

	return searcher, nil
}
