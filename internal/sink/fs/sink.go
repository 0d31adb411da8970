// Package fssink persists crawl results as flat files: one CSV per board and
// one JSON summary per run.
package fssink

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pttcrawl/hotboards-crawler/internal/crawler"
)

// utf8BOM makes the CSVs open cleanly in spreadsheet tools that sniff
// encodings.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var invalidFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Field set and order are stable across all rows of a sink call.
var csvHeader = []string{
	"title", "author", "link", "board", "content",
	"push_count", "status", "retries_used", "fetched_at",
}

const fetchedAtLayout = "2006-01-02 15:04:05"

// Sink writes results under a root directory.
type Sink struct {
	root   string
	logger *zap.Logger
}

// New returns a sink rooted at dir, creating it if needed.
func New(root string, logger *zap.Logger) (*Sink, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create sink dir %s: %w", root, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{root: root, logger: logger}, nil
}

// WriteBoardResult persists one CSV row per outcome.
func (s *Sink) WriteBoardResult(ctx context.Context, result crawler.BoardResult) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, out := range result.Outcomes {
		if err := w.Write(outcomeRow(out)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	target := filepath.Join(s.root, boardFileName(result.Board.Name))
	if err := os.WriteFile(target, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write board results %s: %w", target, err)
	}

	s.logger.Info("board results written",
		zap.String("board", result.Board.Name),
		zap.Int("rows", len(result.Outcomes)),
		zap.String("path", target),
	)
	return nil
}

// WriteRunSummary persists the aggregate counters and per-board breakdown.
func (s *Sink) WriteRunSummary(ctx context.Context, summary crawler.RunSummary) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}

	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	target := filepath.Join(s.root, "crawl_summary.json")
	if err := os.WriteFile(target, payload, 0o600); err != nil {
		return fmt.Errorf("write run summary %s: %w", target, err)
	}

	s.logger.Info("run summary written", zap.String("path", target))
	return nil
}

func outcomeRow(out crawler.ArticleOutcome) []string {
	fetchedAt := ""
	if !out.FetchedAt.IsZero() {
		fetchedAt = out.FetchedAt.Format(fetchedAtLayout)
	}
	return []string{
		out.Post.Title,
		out.Post.Author,
		out.Post.Link,
		out.Post.Board,
		out.Content,
		strconv.Itoa(out.PushCount),
		string(out.Status),
		strconv.Itoa(out.RetriesUsed),
		fetchedAt,
	}
}

func boardFileName(board string) string {
	name := invalidFilenameChars.ReplaceAllString(board, "_")
	if name == "" {
		name = "board_" + strconv.FormatInt(time.Now().Unix(), 10)
	}
	return name + ".csv"
}
