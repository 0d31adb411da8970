package crawler

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// fetchLimiter paces fetch starts across the whole run with a token bucket.
// A zero or negative RPS disables pacing; the fixed per-unit request delay
// remains the primary politeness mechanism.
type fetchLimiter struct {
	limiter *rate.Limiter
}

func newFetchLimiter(rps float64, burst int) *fetchLimiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return &fetchLimiter{limiter: rate.NewLimiter(limit, burst)}
}

func (l *fetchLimiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// pauseBetweenRequests applies the fixed inter-request delay after each
// completed article unit. The unit holds its admission slot while pausing,
// so the limiter, not a global sleep, determines true concurrency.
func (e *Engine) pauseBetweenRequests(ctx context.Context) {
	if e.cfg.RequestDelay <= 0 {
		return
	}
	timer := time.NewTimer(e.cfg.RequestDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
