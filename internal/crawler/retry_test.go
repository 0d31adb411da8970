package crawler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAttemptTimeoutRampsLinearly(t *testing.T) {
	t.Parallel()

	policy := RetryPolicy{
		BaseTimeout:      30 * time.Second,
		TimeoutIncrement: 5 * time.Second,
	}

	require.Equal(t, 30*time.Second, policy.attemptTimeout(0))
	require.Equal(t, 35*time.Second, policy.attemptTimeout(1))
	require.Equal(t, 40*time.Second, policy.attemptTimeout(2))
}

func TestRetryWaitHonorsCancellation(t *testing.T) {
	t.Parallel()

	policy := RetryPolicy{RetryDelay: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := policy.wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFetchArticleSucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{
		fetch: func(context.Context, string) ([]byte, error) {
			return []byte("<html>"), nil
		},
	}
	extractor := &stubExtractor{
		detail: func([]byte) (Detail, error) {
			return Detail{Content: "hello world", PushCount: 7}, nil
		},
	}
	engine := newTestEngine(t, testConfig(), fetcher, extractor, &memorySink{})

	out := engine.fetchArticle(context.Background(), PostRef{Link: "https://example.test/p/1", Board: "Stock"})

	require.True(t, out.Succeeded())
	require.Equal(t, "hello world", out.Content)
	require.Equal(t, 7, out.PushCount)
	require.Zero(t, out.RetriesUsed)
	require.False(t, out.FetchedAt.IsZero())
}

func TestFetchArticleRecoversAfterRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	fetcher := &stubFetcher{
		fetch: func(_ context.Context, url string) ([]byte, error) {
			if calls.Add(1) <= 2 {
				return nil, &FetchError{Kind: KindConnectionFailed, URL: url}
			}
			return []byte("<html>"), nil
		},
	}
	extractor := &stubExtractor{
		detail: func([]byte) (Detail, error) {
			return Detail{Content: "recovered"}, nil
		},
	}
	engine := newTestEngine(t, testConfig(), fetcher, extractor, &memorySink{})

	out := engine.fetchArticle(context.Background(), PostRef{Link: "https://example.test/p/2"})

	require.True(t, out.Succeeded())
	require.Equal(t, 2, out.RetriesUsed)
	require.EqualValues(t, 3, calls.Load())
}

func TestFetchArticleExhaustsRetryBudget(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	fetcher := &stubFetcher{
		fetch: func(_ context.Context, url string) ([]byte, error) {
			calls.Add(1)
			return nil, &FetchError{Kind: KindHTTPStatus, URL: url, StatusCode: 503}
		},
	}
	cfg := testConfig()
	engine := newTestEngine(t, cfg, fetcher, &stubExtractor{}, &memorySink{})

	out := engine.fetchArticle(context.Background(), PostRef{Link: "https://example.test/p/3"})

	require.False(t, out.Succeeded())
	require.Equal(t, StatusFailed, out.Status)
	require.Equal(t, KindHTTPStatus, out.Reason)
	require.Equal(t, cfg.MaxRetries, out.RetriesUsed)
	require.EqualValues(t, cfg.MaxRetries+1, calls.Load())
}

func TestFetchArticleRetriesEmptyContent(t *testing.T) {
	t.Parallel()

	var detailCalls atomic.Int32
	fetcher := &stubFetcher{
		fetch: func(context.Context, string) ([]byte, error) {
			return []byte("<html>"), nil
		},
	}
	extractor := &stubExtractor{
		detail: func([]byte) (Detail, error) {
			if detailCalls.Add(1) == 1 {
				return Detail{Content: "   \n\t  "}, nil
			}
			return Detail{Content: "eventually readable"}, nil
		},
	}
	engine := newTestEngine(t, testConfig(), fetcher, extractor, &memorySink{})

	out := engine.fetchArticle(context.Background(), PostRef{Link: "https://example.test/p/4"})

	require.True(t, out.Succeeded())
	require.Equal(t, 1, out.RetriesUsed)
}

func TestFetchArticleStopsOnCancellation(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	fetcher := &stubFetcher{
		fetch: func(context.Context, string) ([]byte, error) {
			calls.Add(1)
			return nil, &FetchError{Kind: KindConnectionFailed}
		},
	}
	engine := newTestEngine(t, testConfig(), fetcher, &stubExtractor{}, &memorySink{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := engine.fetchArticle(ctx, PostRef{Link: "https://example.test/p/5"})

	require.Equal(t, StatusFailed, out.Status)
	require.Equal(t, KindCancelled, out.Reason)
	require.Zero(t, calls.Load())
}

// Not parallel: asserts on the process-wide in-flight gauge.
func TestInFlightGaugeStaysBalancedWhenFetchPanics(t *testing.T) {
	fetcher := &stubFetcher{
		fetch: func(context.Context, string) ([]byte, error) {
			panic("transport bug")
		},
	}
	engine := newTestEngine(t, testConfig(), fetcher, &stubExtractor{}, &memorySink{})

	before := gaugeValue(t, "crawler_in_flight_fetches")
	out := engine.processArticle(context.Background(), PostRef{Link: "https://example.test/p/7"})

	require.Equal(t, StatusFailed, out.Status)
	require.Equal(t, KindUnexpected, out.Reason)
	require.Equal(t, before, gaugeValue(t, "crawler_in_flight_fetches"))
}

func TestFetchArticleTruncatesContent(t *testing.T) {
	t.Parallel()

	long := make([]rune, 0, 2000)
	for i := 0; i < 2000; i++ {
		long = append(long, '字')
	}
	fetcher := &stubFetcher{
		fetch: func(context.Context, string) ([]byte, error) {
			return []byte("<html>"), nil
		},
	}
	extractor := &stubExtractor{
		detail: func([]byte) (Detail, error) {
			return Detail{Content: string(long)}, nil
		},
	}
	cfg := testConfig()
	engine := newTestEngine(t, cfg, fetcher, extractor, &memorySink{})

	out := engine.fetchArticle(context.Background(), PostRef{Link: "https://example.test/p/6"})

	require.True(t, out.Succeeded())
	require.Len(t, []rune(out.Content), cfg.ContentMaxChars)
}
