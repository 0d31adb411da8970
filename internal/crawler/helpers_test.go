package crawler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// fixedClock always reports the same instant.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

// stubFetcher delegates to a function so each test shapes its own responses.
type stubFetcher struct {
	fetch func(ctx context.Context, url string) ([]byte, error)
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f.fetch(ctx, url)
}

func (f *stubFetcher) Close(context.Context) error {
	return nil
}

// stubExtractor delegates to per-method functions.
type stubExtractor struct {
	boards func(markup []byte) ([]Board, error)
	posts  func(board Board, markup []byte) ([]PostRef, error)
	detail func(markup []byte) (Detail, error)
}

func (e *stubExtractor) Boards(markup []byte) ([]Board, error) {
	if e.boards == nil {
		return nil, &ExtractError{Kind: KindMalformedPage, Detail: "no boards stub"}
	}
	return e.boards(markup)
}

func (e *stubExtractor) Posts(board Board, markup []byte) ([]PostRef, error) {
	if e.posts == nil {
		return nil, nil
	}
	return e.posts(board, markup)
}

func (e *stubExtractor) Detail(markup []byte) (Detail, error) {
	if e.detail == nil {
		return Detail{}, nil
	}
	return e.detail(markup)
}

// memorySink records writes for assertion.
type memorySink struct {
	mu        sync.Mutex
	results   []BoardResult
	summaries []RunSummary
	writeErr  error
}

func (s *memorySink) WriteBoardResult(_ context.Context, result BoardResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.results = append(s.results, result)
	return nil
}

func (s *memorySink) WriteRunSummary(_ context.Context, summary RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.summaries = append(s.summaries, summary)
	return nil
}

func (s *memorySink) boardResults() []BoardResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]BoardResult, len(s.results))
	copy(out, s.results)
	return out
}

func (s *memorySink) runSummaries() []RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RunSummary, len(s.summaries))
	copy(out, s.summaries)
	return out
}

// testConfig returns a config tuned for fast tests.
func testConfig() Config {
	return Config{
		NumBoards:          10,
		BoardConcurrency:   3,
		ArticleConcurrency: 5,
		PageTimeout:        2 * time.Second,
		TimeoutIncrement:   100 * time.Millisecond,
		RequestDelay:       0,
		MaxRetries:         2,
		RetryDelay:         time.Millisecond,
		ContentMaxChars:    1000,
		HotboardsURL:       "https://example.test/bbs/hotboards.html",
	}
}

func newTestEngine(t *testing.T, cfg Config, fetcher Fetcher, extractor Extractor, sink ResultSink) *Engine {
	t.Helper()
	clock := fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	engine, err := NewEngine(cfg, fetcher, extractor, sink, clock, nil)
	require.NoError(t, err)
	return engine
}

// gaugeValue reads one gauge from the default prometheus registry.
func gaugeValue(t *testing.T, name string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("gauge %s not registered", name)
	return 0
}
