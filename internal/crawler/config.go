package crawler

import (
	"fmt"
	"time"
)

// Config holds the settings for one crawl run. It is decoupled from Viper so
// the engine can be constructed and tested without the config machinery.
type Config struct {
	// NumBoards caps how many discovered boards are crawled.
	NumBoards int
	// BoardConcurrency bounds concurrently active boards.
	BoardConcurrency int
	// ArticleConcurrency bounds concurrently active article fetches within a
	// board. Global in-flight fetches never exceed
	// BoardConcurrency * ArticleConcurrency.
	ArticleConcurrency int
	// PageTimeout is the first-attempt fetch budget; each retry adds
	// TimeoutIncrement on top.
	PageTimeout      time.Duration
	TimeoutIncrement time.Duration
	// RequestDelay is the fixed pause applied after each completed article
	// unit while it still holds its admission slot.
	RequestDelay time.Duration
	// MaxRetries bounds retries per item; an item sees MaxRetries+1 attempts.
	MaxRetries int
	// RetryDelay is the fixed (non-exponential) wait between attempts.
	RetryDelay time.Duration
	// ContentMaxChars truncates article content in result rows.
	ContentMaxChars int
	// RateLimitRPS paces fetch starts across the whole run when > 0.
	RateLimitRPS float64
	// HotboardsURL is the board discovery page.
	HotboardsURL string
	// FallbackBoards replaces the built-in fallback list when non-empty.
	FallbackBoards []Board
}

// Validate rejects impossible settings before any work starts.
func (c Config) Validate() error {
	if c.NumBoards <= 0 {
		return fmt.Errorf("num boards must be > 0")
	}
	if c.BoardConcurrency <= 0 {
		return fmt.Errorf("board concurrency must be > 0")
	}
	if c.ArticleConcurrency <= 0 {
		return fmt.Errorf("article concurrency must be > 0")
	}
	if c.PageTimeout <= 0 {
		return fmt.Errorf("page timeout must be > 0")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0")
	}
	if c.ContentMaxChars <= 0 {
		return fmt.Errorf("content max chars must be > 0")
	}
	if c.HotboardsURL == "" {
		return fmt.Errorf("hotboards url must be set")
	}
	return nil
}
