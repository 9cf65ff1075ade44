// Package browsertest provides in-memory browser fakes for tests.
package browsertest

import (
	"context"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"

	"github.com/Laisky/wechat-article-search/library/browser"
)

// Page is a scripted browser.Page.
type Page struct {
	mu sync.Mutex

	// HTML is returned by Content.
	HTML string
	// NavigateErrs is consumed one entry per Navigate call; nil entries succeed.
	NavigateErrs []error
	// Present lists selectors that WaitForSelector finds immediately.
	Present map[string]bool
	// ContentErr is returned by Content when set.
	ContentErr error

	Navigations []string
	Waited      []string
}

// NewPage returns a page that serves html and finds every selector in present.
func NewPage(html string, present ...string) *Page {
	p := &Page{HTML: html, Present: map[string]bool{}}
	for _, sel := range present {
		p.Present[sel] = true
	}
	return p
}

func (p *Page) Navigate(_ context.Context, url string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Navigations = append(p.Navigations, url)
	if len(p.NavigateErrs) == 0 {
		return nil
	}
	err := p.NavigateErrs[0]
	p.NavigateErrs = p.NavigateErrs[1:]
	return err
}

func (p *Page) WaitForSelector(_ context.Context, selector string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Waited = append(p.Waited, selector)
	if p.Present[selector] {
		return nil
	}
	return errors.Wrapf(browser.ErrTimeout, "selector %q not found", selector)
}

func (p *Page) Content(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ContentErr != nil {
		return "", p.ContentErr
	}
	return p.HTML, nil
}

// NavigationCount returns how many times Navigate was called.
func (p *Page) NavigationCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Navigations)
}

// Instance is a fake browser.Instance that records teardown order.
type Instance struct {
	mu        sync.Mutex
	page      browser.Page
	connected bool
	closeErrs map[string]error

	Closed []string
}

// NewInstance returns a connected instance serving page.
func NewInstance(page browser.Page) *Instance {
	return &Instance{page: page, connected: true, closeErrs: map[string]error{}}
}

// Disconnect simulates the browser process going away.
func (i *Instance) Disconnect() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.connected = false
}

// FailClose makes the named teardown step ("context", "page", "browser", "driver") fail.
func (i *Instance) FailClose(step string, err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closeErrs[step] = err
}

// ClosedSteps returns the teardown steps executed so far.
func (i *Instance) ClosedSteps() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.Closed...)
}

func (i *Instance) Page() browser.Page { return i.page }

func (i *Instance) IsConnected() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.connected
}

func (i *Instance) CloseContext() error { return i.close("context") }
func (i *Instance) ClosePage() error    { return i.close("page") }
func (i *Instance) CloseBrowser() error { return i.close("browser") }
func (i *Instance) StopDriver() error   { return i.close("driver") }

func (i *Instance) close(step string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.Closed = append(i.Closed, step)
	if step == "browser" {
		i.connected = false
	}
	return i.closeErrs[step]
}

// Launcher is a fake browser.Launcher.
// Each Launch calls New to build an instance unless Err is set.
type Launcher struct {
	mu sync.Mutex

	New func() *Instance
	// Err fails the next launches; Partial is returned alongside it.
	Err     error
	Partial *Instance

	Configs   []browser.LaunchConfig
	Instances []*Instance
}

// NewLauncher returns a launcher whose instances all serve page.
func NewLauncher(page browser.Page) *Launcher {
	return &Launcher{New: func() *Instance { return NewInstance(page) }}
}

func (l *Launcher) Launch(_ context.Context, cfg browser.LaunchConfig) (browser.Instance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.Configs = append(l.Configs, cfg)
	if l.Err != nil {
		if l.Partial != nil {
			return l.Partial, l.Err
		}
		return nil, l.Err
	}

	inst := l.New()
	l.Instances = append(l.Instances, inst)
	return inst, nil
}

// Launches returns the number of Launch calls, failed ones included.
func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Configs)
}

// Last returns the most recently launched instance.
func (l *Launcher) Last() *Instance {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.Instances) == 0 {
		return nil
	}
	return l.Instances[len(l.Instances)-1]
}

// SetErr changes the launch failure at runtime.
func (l *Launcher) SetErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Err = err
}
