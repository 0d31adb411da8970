package crawler

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pttcrawl/hotboards-crawler/internal/metrics"
)

// RetryPolicy wraps one fetch+extract attempt with a bounded retry budget.
// The delay between attempts is fixed and the per-attempt timeout grows
// linearly, matching the target site's observed recovery behavior.
type RetryPolicy struct {
	MaxRetries       int
	BaseTimeout      time.Duration
	TimeoutIncrement time.Duration
	RetryDelay       time.Duration
}

// attemptTimeout returns the fetch budget for the given 0-indexed attempt.
func (p RetryPolicy) attemptTimeout(attempt int) time.Duration {
	return p.BaseTimeout + time.Duration(attempt)*p.TimeoutIncrement
}

// wait sleeps the fixed retry delay unless the context finishes first.
func (p RetryPolicy) wait(ctx context.Context) error {
	if p.RetryDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(p.RetryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// fetchArticle runs the full retry state machine for one post and always
// returns a terminal outcome; no error escapes.
func (e *Engine) fetchArticle(ctx context.Context, post PostRef) ArticleOutcome {
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return failedOutcome(post, KindCancelled, attempt)
		}

		detail, err := e.fetchDetail(ctx, post.Link, attempt)
		if err == nil {
			if attempt > 0 {
				e.logger.Debug("article recovered after retry",
					zap.String("link", post.Link),
					zap.Int("retries_used", attempt),
				)
			}
			return ArticleOutcome{
				Post:        post,
				Status:      StatusSuccess,
				Content:     truncateContent(detail.Content, e.cfg.ContentMaxChars),
				PushCount:   detail.PushCount,
				RetriesUsed: attempt,
				FetchedAt:   e.clock.Now(),
			}
		}

		kind := Classify(err)
		if kind == KindCancelled || ctx.Err() != nil {
			return failedOutcome(post, KindCancelled, attempt)
		}
		if attempt == e.retry.MaxRetries {
			e.logger.Warn("article failed after exhausting retries",
				zap.String("link", post.Link),
				zap.String("board", post.Board),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			return failedOutcome(post, kind, attempt)
		}
		e.logger.Debug("article attempt failed, retrying",
			zap.String("link", post.Link),
			zap.Int("attempt", attempt),
			zap.String("kind", string(kind)),
		)
		if werr := e.retry.wait(ctx); werr != nil {
			return failedOutcome(post, KindCancelled, attempt)
		}
	}
}

// fetchDetail performs one attempt: fetch under the ramped timeout, then
// extract. A present-but-empty body is untrustworthy and treated as a
// failure so the attempt is retried.
func (e *Engine) fetchDetail(ctx context.Context, url string, attempt int) (Detail, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.retry.attemptTimeout(attempt))
	defer cancel()

	if err := e.limiter.Wait(attemptCtx); err != nil {
		return Detail{}, err
	}

	body, err := e.timedFetch(attemptCtx, url)
	if err != nil {
		return Detail{}, err
	}

	detail, err := e.extractor.Detail(body)
	if err != nil {
		return Detail{}, err
	}
	if strings.TrimSpace(detail.Content) == "" {
		return Detail{}, &ExtractError{Kind: KindEmptyContent, Detail: "article body is empty"}
	}
	return detail, nil
}

// timedFetch instruments one transport call. The decrement is deferred so
// the in-flight gauge stays balanced when the transport panics.
func (e *Engine) timedFetch(ctx context.Context, url string) ([]byte, error) {
	metrics.IncInFlightFetches()
	defer metrics.DecInFlightFetches()
	start := time.Now()
	defer func() {
		metrics.ObserveFetchDuration(time.Since(start))
	}()
	return e.fetcher.Fetch(ctx, url)
}

func failedOutcome(post PostRef, kind ErrorKind, retriesUsed int) ArticleOutcome {
	return ArticleOutcome{
		Post:        post,
		Status:      StatusFailed,
		RetriesUsed: retriesUsed,
		Reason:      kind,
	}
}
