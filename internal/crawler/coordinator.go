package crawler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pttcrawl/hotboards-crawler/internal/metrics"
)

// Engine drives one crawl run: board discovery, the two-level bounded
// fan-out, stats aggregation, and result dispatch.
type Engine struct {
	cfg       Config
	retry     RetryPolicy
	fetcher   Fetcher
	extractor Extractor
	sink      ResultSink
	clock     Clock
	stats     *RunStats
	limiter   *fetchLimiter
	logger    *zap.Logger
	runID     string
}

// NewEngine validates the configuration and wires the engine. Config errors
// here are the only fatal condition besides transport setup failure.
func NewEngine(
	cfg Config,
	fetcher Fetcher,
	extractor Extractor,
	sink ResultSink,
	clock Clock,
	logger *zap.Logger,
) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("crawler config: %w", err)
	}
	if clock == nil {
		clock = systemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()

	return &Engine{
		cfg: cfg,
		retry: RetryPolicy{
			MaxRetries:       cfg.MaxRetries,
			BaseTimeout:      cfg.PageTimeout,
			TimeoutIncrement: cfg.TimeoutIncrement,
			RetryDelay:       cfg.RetryDelay,
		},
		fetcher:   fetcher,
		extractor: extractor,
		sink:      sink,
		clock:     clock,
		stats:     NewRunStats(),
		limiter:   newFetchLimiter(cfg.RateLimitRPS, cfg.BoardConcurrency*cfg.ArticleConcurrency),
		logger:    logger,
		runID:     uuid.NewString(),
	}, nil
}

// Stats exposes the run counters.
func (e *Engine) Stats() *RunStats {
	return e.stats
}

// Run executes the full crawl and returns a summary. Partial failure never
// aborts the run; the summary's OK field is true iff at least one article
// succeeded.
func (e *Engine) Run(ctx context.Context) RunSummary {
	e.stats.markStart(e.clock.Now())
	e.logger.Info("crawl started",
		zap.String("run_id", e.runID),
		zap.Int("board_concurrency", e.cfg.BoardConcurrency),
		zap.Int("article_concurrency", e.cfg.ArticleConcurrency),
		zap.Int("max_retries", e.cfg.MaxRetries),
	)

	boards := e.discoverBoards(ctx)
	results := e.crawlBoards(ctx, boards)

	for _, res := range results {
		e.recordOutcomes(res)
	}

	// Persistence runs detached from the run context: an interrupted run
	// still writes every outcome it already has.
	persistCtx := context.WithoutCancel(ctx)
	e.dispatchResults(persistCtx, results)

	e.stats.markEnd(e.clock.Now())
	summary := e.buildSummary(results)
	e.writeSummary(persistCtx, summary)

	snap := summary.Stats
	e.logger.Info("crawl finished",
		zap.String("run_id", e.runID),
		zap.Bool("ok", summary.OK),
		zap.Int("boards_attempted", snap.BoardsAttempted),
		zap.Int("articles_succeeded", snap.ArticlesSucceeded),
		zap.Int("articles_failed", snap.ArticlesFailed),
		zap.Int("articles_retried", snap.ArticlesRetried),
		zap.Duration("elapsed", snap.Elapsed()),
	)
	return summary
}

// discoverBoards resolves the board set, substituting the fixed fallback list
// when discovery fails or returns nothing after its own bounded retries.
func (e *Engine) discoverBoards(ctx context.Context) []Board {
	boards, err := e.listBoards(ctx)
	if err != nil || len(boards) == 0 {
		e.logger.Warn("board discovery failed, using fallback list", zap.Error(err))
		e.stats.errorOccurred()
		boards = e.fallbackBoards()
	}
	if len(boards) > e.cfg.NumBoards {
		boards = boards[:e.cfg.NumBoards]
	}
	e.logger.Info("boards resolved", zap.Int("count", len(boards)))
	return boards
}

func (e *Engine) listBoards(ctx context.Context) ([]Board, error) {
	var lastErr error
	for attempt := 0; attempt <= e.retry.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("board discovery canceled: %w", err)
		}

		boards, err := e.listBoardsOnce(ctx, attempt)
		if err == nil {
			return boards, nil
		}
		lastErr = err
		if Classify(err) == KindCancelled {
			return nil, err
		}
		if attempt < e.retry.MaxRetries {
			if werr := e.retry.wait(ctx); werr != nil {
				return nil, fmt.Errorf("board discovery canceled: %w", werr)
			}
		}
	}
	return nil, lastErr
}

func (e *Engine) listBoardsOnce(ctx context.Context, attempt int) ([]Board, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.retry.attemptTimeout(attempt))
	defer cancel()

	body, err := e.fetcher.Fetch(attemptCtx, e.cfg.HotboardsURL)
	if err != nil {
		return nil, err
	}
	return e.extractor.Boards(body)
}

func (e *Engine) fallbackBoards() []Board {
	boards := e.cfg.FallbackBoards
	if len(boards) == 0 {
		boards = DefaultFallbackBoards()
	}
	return boards
}

func (e *Engine) recordOutcomes(res BoardResult) {
	for _, out := range res.Outcomes {
		if out.Succeeded() {
			e.stats.articleSucceeded()
		} else {
			e.stats.articleFailed()
			e.stats.errorOccurred()
		}
		if out.RetriesUsed > 0 {
			e.stats.articleRetried()
		}
	}
}

// dispatchResults writes one sink call per non-empty BoardResult. Boards are
// disjoint, so writes run concurrently; a failed write is logged and never
// fails the run.
func (e *Engine) dispatchResults(ctx context.Context, results []BoardResult) {
	g := new(errgroup.Group)
	for _, res := range results {
		if len(res.Outcomes) == 0 {
			e.logger.Info("skipping empty board result", zap.String("board", res.Board.Name))
			continue
		}
		g.Go(func() error {
			if err := e.sink.WriteBoardResult(ctx, res); err != nil {
				e.logger.Error("board result write failed",
					zap.String("board", res.Board.Name),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Engine) buildSummary(results []BoardResult) RunSummary {
	boards := make([]BoardSummary, 0, len(results))
	for _, res := range results {
		boards = append(boards, res.Summarize())
	}
	snap := e.stats.Snapshot()
	return RunSummary{
		RunID:  e.runID,
		OK:     snap.ArticlesSucceeded > 0,
		Stats:  snap,
		Boards: boards,
	}
}

func (e *Engine) writeSummary(ctx context.Context, summary RunSummary) {
	if err := e.sink.WriteRunSummary(ctx, summary); err != nil {
		e.logger.Error("run summary write failed", zap.Error(err))
	}
}
