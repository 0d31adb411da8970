package crawler

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// crawlBoards fans out board processing under the board admission gate.
// Boards proceed fully independently; every admitted board yields a
// BoardResult even when its listing or every article fails.
func (e *Engine) crawlBoards(ctx context.Context, boards []Board) []BoardResult {
	results := make([]BoardResult, len(boards))

	g := new(errgroup.Group)
	g.SetLimit(e.cfg.BoardConcurrency)
	for i, board := range boards {
		g.Go(func() error {
			results[i] = e.processBoard(ctx, board)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (e *Engine) processBoard(ctx context.Context, board Board) BoardResult {
	e.stats.boardAttempted()
	e.logger.Info("board started", zap.String("board", board.Name))

	posts, err := e.listPosts(ctx, board)
	if err != nil {
		// Listing failure degrades the board to an empty post list; the run
		// keeps going.
		e.logger.Warn("board listing failed",
			zap.String("board", board.Name),
			zap.Error(err),
		)
		e.stats.errorOccurred()
		posts = nil
	}

	outcomes := e.crawlArticles(ctx, posts)
	e.stats.boardCompleted()

	succeeded := 0
	for _, out := range outcomes {
		if out.Succeeded() {
			succeeded++
		}
	}
	e.logger.Info("board finished",
		zap.String("board", board.Name),
		zap.Int("posts", len(posts)),
		zap.Int("succeeded", succeeded),
	)
	return BoardResult{Board: board, Outcomes: outcomes}
}

// listPosts fetches a board's index page with the same bounded retry shape
// used for article details.
func (e *Engine) listPosts(ctx context.Context, board Board) ([]PostRef, error) {
	indexURL := boardIndexURL(board.URL)

	var lastErr error
	for attempt := 0; attempt <= e.retry.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("board listing canceled: %w", err)
		}

		posts, err := e.listPostsOnce(ctx, board, indexURL, attempt)
		if err == nil {
			return posts, nil
		}
		lastErr = err
		if Classify(err) == KindCancelled {
			return nil, err
		}
		if attempt < e.retry.MaxRetries {
			if werr := e.retry.wait(ctx); werr != nil {
				return nil, fmt.Errorf("board listing canceled: %w", werr)
			}
		}
	}
	return nil, lastErr
}

func (e *Engine) listPostsOnce(ctx context.Context, board Board, indexURL string, attempt int) ([]PostRef, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.retry.attemptTimeout(attempt))
	defer cancel()

	body, err := e.fetcher.Fetch(attemptCtx, indexURL)
	if err != nil {
		return nil, err
	}
	return e.extractor.Posts(board, body)
}
