package crawler

import (
	"context"
	"time"
)

// Fetcher retrieves raw page markup. Implementations honor the context
// deadline and return a *FetchError on transport failure. The fetcher owns
// any session state (connection pools, browser contexts) and releases it on
// Close.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	Close(ctx context.Context) error
}

// Extractor turns raw markup into structured records. Implementations return
// a *ExtractError when the page is empty or malformed.
type Extractor interface {
	Boards(markup []byte) ([]Board, error)
	Posts(board Board, markup []byte) ([]PostRef, error)
	Detail(markup []byte) (Detail, error)
}

// ResultSink persists board results and the run summary.
type ResultSink interface {
	WriteBoardResult(ctx context.Context, result BoardResult) error
	WriteRunSummary(ctx context.Context, summary RunSummary) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}
