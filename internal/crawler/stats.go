package crawler

import (
	"sync"
	"sync/atomic"
	"time"
)

// RunStats tracks process-lifetime counters for one crawl run. Counters are
// mutated only via atomic increments; start/end times are written by the
// coordinator alone.
type RunStats struct {
	boardsAttempted   atomic.Int64
	boardsCompleted   atomic.Int64
	articlesSucceeded atomic.Int64
	articlesFailed    atomic.Int64
	articlesRetried   atomic.Int64
	errorCount        atomic.Int64

	mu    sync.Mutex
	start time.Time
	end   time.Time
}

// NewRunStats returns zeroed stats.
func NewRunStats() *RunStats {
	return &RunStats{}
}

func (s *RunStats) boardAttempted()   { s.boardsAttempted.Add(1) }
func (s *RunStats) boardCompleted()   { s.boardsCompleted.Add(1) }
func (s *RunStats) articleSucceeded() { s.articlesSucceeded.Add(1) }
func (s *RunStats) articleFailed()    { s.articlesFailed.Add(1) }
func (s *RunStats) articleRetried()   { s.articlesRetried.Add(1) }
func (s *RunStats) errorOccurred()    { s.errorCount.Add(1) }

func (s *RunStats) markStart(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start = t
}

func (s *RunStats) markEnd(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.end = t
}

// Snapshot returns a consistent copy of the counters.
func (s *RunStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	start, end := s.start, s.end
	s.mu.Unlock()
	return StatsSnapshot{
		BoardsAttempted:   int(s.boardsAttempted.Load()),
		BoardsCompleted:   int(s.boardsCompleted.Load()),
		ArticlesSucceeded: int(s.articlesSucceeded.Load()),
		ArticlesFailed:    int(s.articlesFailed.Load()),
		ArticlesRetried:   int(s.articlesRetried.Load()),
		TotalErrors:       int(s.errorCount.Load()),
		StartTime:         start,
		EndTime:           end,
	}
}

// StatsSnapshot is an immutable view of RunStats, persisted with the run
// summary.
type StatsSnapshot struct {
	BoardsAttempted   int       `json:"boards_attempted"`
	BoardsCompleted   int       `json:"boards_completed"`
	ArticlesSucceeded int       `json:"articles_succeeded"`
	ArticlesFailed    int       `json:"articles_failed"`
	ArticlesRetried   int       `json:"articles_retried"`
	TotalErrors       int       `json:"total_errors"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
}

// Elapsed returns the wall-clock duration of the run.
func (s StatsSnapshot) Elapsed() time.Duration {
	if s.StartTime.IsZero() || s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}
