// Package collyfetcher implements crawler.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/pttcrawl/hotboards-crawler/internal/crawler"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	// BaseURL scopes the session cookies, e.g. "https://www.ptt.cc".
	BaseURL string
	// Cookies are set once on the shared jar; PTT needs over18=1.
	Cookies map[string]string
	// Timeout is the fallback request budget when the context carries no
	// deadline.
	Timeout time.Duration
}

// Fetcher performs single-page fetches over a shared connection pool.
type Fetcher struct {
	cfg    Config
	base   *colly.Collector
	logger *zap.Logger
}

// New builds a Fetcher. The session cookies live on the base collector's jar
// and are shared by every per-fetch clone.
func New(cfg Config, logger *zap.Logger) (*Fetcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []colly.CollectorOption{colly.Async(false)}
	if cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(cfg.UserAgent))
	}
	c := colly.NewCollector(opts...)
	c.AllowURLRevisit = true // retries refetch the same URL
	c.WithTransport(newHTTPTransport())

	if len(cfg.Cookies) > 0 && cfg.BaseURL != "" {
		cookies := make([]*http.Cookie, 0, len(cfg.Cookies))
		for name, value := range cfg.Cookies {
			cookies = append(cookies, &http.Cookie{Name: name, Value: value, Path: "/"})
		}
		if err := c.SetCookies(cfg.BaseURL, cookies); err != nil {
			return nil, fmt.Errorf("set session cookies: %w", err)
		}
	}

	return &Fetcher{cfg: cfg, base: c, logger: logger}, nil
}

// Fetch executes a single HTTP GET and returns the raw body. Failures are
// reported as *crawler.FetchError carrying the taxonomy kind.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	timeout := f.cfg.Timeout
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

	collector := f.base.Clone()
	collector.SetRequestTimeout(timeout)

	var (
		body     []byte
		status   int
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return nil, &crawler.FetchError{
			Kind: ctxKind(ctx.Err()),
			URL:  rawURL,
			Err:  ctx.Err(),
		}
	case err := <-done:
		if err == nil {
			err = fetchErr
		}
		if err != nil {
			return nil, f.classify(rawURL, status, err)
		}
		return body, nil
	}
}

// Close releases nothing; the transport's idle connections are reclaimed by
// the runtime.
func (f *Fetcher) Close(context.Context) error {
	return nil
}

func (f *Fetcher) classify(rawURL string, status int, err error) error {
	kind := crawler.KindConnectionFailed
	switch {
	case status >= 400:
		kind = crawler.KindHTTPStatus
	case errors.Is(err, context.DeadlineExceeded):
		kind = crawler.KindTimeout
	case errors.Is(err, context.Canceled):
		kind = crawler.KindCancelled
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			kind = crawler.KindTimeout
		}
	}
	return &crawler.FetchError{Kind: kind, URL: rawURL, StatusCode: status, Err: err}
}

func ctxKind(err error) crawler.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return crawler.KindTimeout
	}
	return crawler.KindCancelled
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}
