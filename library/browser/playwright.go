package browser

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/playwright-community/playwright-go"

	appLog "github.com/Laisky/wechat-article-search/library/log"
)

// Install downloads the playwright driver and the chromium build it drives.
func Install() error {
	if err := playwright.Install(&playwright.RunOptions{
		Browsers: []string{"chromium"},
	}); err != nil {
		return errors.Wrap(err, "install playwright chromium")
	}
	return nil
}

// PlaywrightLauncher starts chromium through playwright-go.
type PlaywrightLauncher struct {
	logger logSDK.Logger
}

// NewPlaywrightLauncher constructs a launcher, logger may be nil.
func NewPlaywrightLauncher(logger logSDK.Logger) *PlaywrightLauncher {
	if logger == nil {
		logger = appLog.Logger.Named("playwright")
	}
	return &PlaywrightLauncher{logger: logger}
}

// Launch starts the driver, chromium, one context and one page with the
// request interceptor installed. On failure the partially built instance is
// returned together with the error.
func (l *PlaywrightLauncher) Launch(ctx context.Context, cfg LaunchConfig) (Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	inst := &playwrightInstance{}
	pw, err := playwright.Run()
	if err != nil {
		return nil, errors.Wrap(err, "start playwright driver")
	}
	inst.pw = pw

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args:     cfg.LaunchArgs(cfg.UserAgent),
	}
	if cfg.Proxy != "" {
		launchOpts.Proxy = &playwright.Proxy{Server: cfg.Proxy}
	}
	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		return inst, errors.Wrap(err, "launch chromium")
	}
	inst.browser = browser

	contextOpts := playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(cfg.IgnoreHTTPSErrors),
		JavaScriptEnabled: playwright.Bool(cfg.JavaScriptEnabled),
	}
	if cfg.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(cfg.UserAgent)
	}
	if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
		contextOpts.Viewport = &playwright.Size{
			Width:  cfg.Viewport.Width,
			Height: cfg.Viewport.Height,
		}
	}
	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		return inst, errors.Wrap(err, "new browser context")
	}
	inst.bctx = bctx

	page, err := bctx.NewPage()
	if err != nil {
		return inst, errors.Wrap(err, "new page")
	}
	inst.page = page
	if cfg.DefaultTimeout > 0 {
		page.SetDefaultTimeout(millis(cfg.DefaultTimeout))
	}

	filter := NewResourceFilter(cfg.BlockedResources)
	if err := page.Route("**/*", func(route playwright.Route) {
		resourceType := route.Request().ResourceType()
		if filter.ShouldAbort(resourceType) {
			if err := route.Abort(); err != nil {
				l.logger.Debug("abort request", zap.String("type", resourceType), zap.Error(err))
			}
			return
		}
		if err := route.Continue(); err != nil {
			l.logger.Debug("continue request", zap.String("type", resourceType), zap.Error(err))
		}
	}); err != nil {
		return inst, errors.Wrap(err, "install request interceptor")
	}

	return inst, nil
}

type playwrightInstance struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
}

func (i *playwrightInstance) Page() Page {
	if i.page == nil {
		return nil
	}
	return &playwrightPage{page: i.page}
}

func (i *playwrightInstance) IsConnected() bool {
	return i.browser != nil && i.browser.IsConnected()
}

func (i *playwrightInstance) CloseContext() error {
	if i.bctx == nil {
		return nil
	}
	if err := i.bctx.Close(); err != nil {
		return errors.Wrap(err, "close browser context")
	}
	return nil
}

func (i *playwrightInstance) ClosePage() error {
	if i.page == nil || i.page.IsClosed() {
		return nil
	}
	if err := i.page.Close(); err != nil {
		return errors.Wrap(err, "close page")
	}
	return nil
}

func (i *playwrightInstance) CloseBrowser() error {
	if i.browser == nil {
		return nil
	}
	if err := i.browser.Close(); err != nil {
		return errors.Wrap(err, "close browser")
	}
	return nil
}

func (i *playwrightInstance) StopDriver() error {
	if i.pw == nil {
		return nil
	}
	if err := i.pw.Stop(); err != nil {
		return errors.Wrap(err, "stop playwright driver")
	}
	return nil
}

type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(millis(timeout)),
	})
	return classify(err, "goto")
}

func (p *playwrightPage) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	_, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(millis(timeout)),
	})
	return classify(err, "wait for selector "+selector)
}

func (p *playwrightPage) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.WithStack(err)
	}

	html, err := p.page.Content()
	if err != nil {
		return "", classify(err, "read page content")
	}
	return html, nil
}

// classify maps playwright timeouts onto ErrTimeout.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return errors.Wrapf(ErrTimeout, "%s: %v", op, err)
	}
	return errors.Wrap(err, op)
}

func millis(d time.Duration) float64 {
	return float64(d / time.Millisecond)
}
