package crawler

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pttcrawl/hotboards-crawler/internal/metrics"
)

// crawlArticles fans out retry-wrapped article units under the article
// admission gate. It returns exactly one outcome per input post, in input
// order, regardless of completion order.
func (e *Engine) crawlArticles(ctx context.Context, posts []PostRef) []ArticleOutcome {
	if len(posts) == 0 {
		return nil
	}

	// Index-addressed slice keeps submission order without post-hoc sorting.
	outcomes := make([]ArticleOutcome, len(posts))

	g := new(errgroup.Group)
	g.SetLimit(e.cfg.ArticleConcurrency)
	for i, post := range posts {
		g.Go(func() error {
			outcomes[i] = e.processArticle(ctx, post)
			return nil
		})
	}
	// Units never return errors; Wait only joins them.
	_ = g.Wait()

	return outcomes
}

// processArticle is the unit boundary: any fault that escapes the retry
// machinery, including a panic, is converted into a Failed outcome so one bad
// post never aborts its siblings.
func (e *Engine) processArticle(ctx context.Context, post PostRef) (out ArticleOutcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("article unit panicked",
				zap.String("link", post.Link),
				zap.Any("panic", r),
			)
			out = failedOutcome(post, KindUnexpected, 0)
		}
	}()

	out = e.fetchArticle(ctx, post)
	metrics.ObserveArticle(post.Board, string(out.Status))
	if out.RetriesUsed > 0 {
		metrics.AddRetries(out.RetriesUsed)
	}

	e.pauseBetweenRequests(ctx)
	return out
}
