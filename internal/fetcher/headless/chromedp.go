// Package headless implements crawler.Fetcher with a headless browser for
// pages that need a rendered DOM.
package headless

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/pttcrawl/hotboards-crawler/internal/crawler"
)

// Config controls the browser session.
type Config struct {
	UserAgent string
	// CookieDomain scopes the session cookies, e.g. ".ptt.cc".
	CookieDomain string
	Cookies      map[string]string
	// NavigationTimeout is the fallback budget when the context carries no
	// deadline.
	NavigationTimeout time.Duration
}

// Fetcher holds one browser allocator for the whole run; each fetch opens a
// fresh tab.
type Fetcher struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// New creates the allocator. The browser process itself starts lazily on the
// first fetch.
func New(cfg Config, logger *zap.Logger) (*Fetcher, error) {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Fetcher{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// Fetch navigates a fresh tab and returns the rendered DOM.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	timeout := f.cfg.NavigationTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return nil, &crawler.FetchError{
			Kind: crawler.KindTimeout,
			URL:  rawURL,
			Err:  context.DeadlineExceeded,
		}
	}

	tabCtx, tabCancel := chromedp.NewContext(f.allocator)
	defer tabCancel()
	tabCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()

	// Tear the tab down if the caller's context finishes first.
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		f.cookieAction(),
		chromedp.Navigate(rawURL),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, f.classify(ctx, rawURL, err)
	}
	return []byte(html), nil
}

// Close shuts down the browser process.
func (f *Fetcher) Close(context.Context) error {
	f.allocCancel()
	return nil
}

func (f *Fetcher) cookieAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for name, value := range f.cfg.Cookies {
			err := network.SetCookie(name, value).
				WithDomain(f.cfg.CookieDomain).
				WithPath("/").
				Do(ctx)
			if err != nil {
				return fmt.Errorf("set cookie %s: %w", name, err)
			}
		}
		return nil
	})
}

func (f *Fetcher) classify(ctx context.Context, rawURL string, err error) error {
	kind := crawler.KindConnectionFailed
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		kind = crawler.KindCancelled
	case errors.Is(err, context.DeadlineExceeded):
		kind = crawler.KindTimeout
	case errors.Is(err, context.Canceled):
		kind = crawler.KindCancelled
	}
	return &crawler.FetchError{Kind: kind, URL: rawURL, Err: err}
}
