package browser

import (
	"classifieds-scraper/utils"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

type Options struct {
	Headless       bool
	RequestTimeout time.Duration
	RenderWait     time.Duration
	UserAgent      string
}

// Session is a Chrome instance shared by every fetch of a run. Each session id
// gets its own tab, which is reused across fetches so cookies and navigation
// state carry over between pages.
type Session struct {
	opts        Options
	allocCancel context.CancelFunc
	// browserCtx owns the browser process; cancelling it closes Chrome.
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu   sync.Mutex
	tabs *tabSet
}

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// tabSet maps session ids to tabs. The tab opened when the browser launched is
// handed to the first session id that asks for one.
type tabSet struct {
	launch *tab
	open   map[string]tab
}

func newTabSet(launch tab) *tabSet {
	return &tabSet{launch: &launch, open: make(map[string]tab)}
}

// get returns the tab for id, claiming the launch tab if it is still free.
func (ts *tabSet) get(id string) (tab, bool) {
	if t, ok := ts.open[id]; ok {
		return t, true
	}
	if ts.launch != nil {
		t := *ts.launch
		ts.launch = nil
		ts.open[id] = t
		return t, true
	}
	return tab{}, false
}

func (ts *tabSet) add(id string, t tab) {
	ts.open[id] = t
}

// closeAll cancels every tab except the launch tab, which is owned by the
// browser context.
func (ts *tabSet) closeAll(browserCtx context.Context) {
	for id, t := range ts.open {
		if t.ctx != browserCtx {
			t.cancel()
		}
		delete(ts.open, id)
	}
	ts.launch = nil
}

func NewSession(opts Options) (*Session, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = RandomUserAgent()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	utils.Info("Launching Chrome browser...")
	allocCtx, allocCancel := chromedp.NewExecAllocator(
		context.Background(),
		stealthOpts(opts.Headless, opts.UserAgent)...,
	)

	// start the browser now so launch failures surface before the crawl begins
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	utils.Success("Browser ready")
	return &Session{
		opts:          opts,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		tabs:          newTabSet(tab{ctx: browserCtx, cancel: browserCancel}),
	}, nil
}

func (s *Session) tab(sessionID string) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tabs.get(sessionID); ok {
		return t.ctx, nil
	}

	// a context derived from browserCtx opens a new tab in the same browser
	ctx, cancel := chromedp.NewContext(s.browserCtx)
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	s.tabs.add(sessionID, tab{ctx: ctx, cancel: cancel})
	return ctx, nil
}

// Fetch navigates the session's tab to url and returns the rendered HTML.
func (s *Session) Fetch(ctx context.Context, sessionID, url string) (string, error) {
	tabCtx, err := s.tab(sessionID)
	if err != nil {
		return "", err
	}

	runCtx, cancel := context.WithTimeout(tabCtx, s.opts.RequestTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err = chromedp.Run(runCtx,
		chromedp.Navigate(url),
		hideWebDriver(),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.opts.RenderWait),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp failed for %s: %w", url, err)
	}

	return html, nil
}

func (s *Session) Close() error {
	utils.Info("Closing browser...")
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tabs.closeAll(s.browserCtx)
	s.browserCancel()
	s.allocCancel()
	return nil
}
