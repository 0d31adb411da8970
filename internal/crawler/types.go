package crawler

import (
	"strings"
	"time"
)

// Board is a named forum channel containing a list of posts.
type Board struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// PostRef is one listing entry from a board index page. Link identifies the
// post; Date may be empty when the index omits it.
type PostRef struct {
	Title  string `json:"title"`
	Link   string `json:"link"`
	Author string `json:"author"`
	Date   string `json:"date"`
	Board  string `json:"board"`
}

// Detail holds the fields extracted from a post's detail page.
type Detail struct {
	Content   string
	PushCount int
}

// OutcomeStatus marks an ArticleOutcome as terminal success or failure.
type OutcomeStatus string

// Outcome status values written to result rows.
const (
	StatusSuccess OutcomeStatus = "success"
	StatusFailed  OutcomeStatus = "failed"
)

// ArticleOutcome is the terminal result of processing one post after all
// retries. Exactly one outcome exists per PostRef; RetriesUsed never exceeds
// the configured retry budget.
type ArticleOutcome struct {
	Post        PostRef       `json:"post"`
	Status      OutcomeStatus `json:"status"`
	Content     string        `json:"content"`
	PushCount   int           `json:"push_count"`
	RetriesUsed int           `json:"retries_used"`
	FetchedAt   time.Time     `json:"fetched_at"`
	Reason      ErrorKind     `json:"reason,omitempty"`
}

// Succeeded reports whether the outcome is a success.
func (o ArticleOutcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

// BoardResult groups the outcomes of one board in submission order.
type BoardResult struct {
	Board    Board            `json:"board"`
	Outcomes []ArticleOutcome `json:"outcomes"`
}

// Summarize counts outcomes by kind for the run summary.
func (r BoardResult) Summarize() BoardSummary {
	s := BoardSummary{Name: r.Board.Name, Total: len(r.Outcomes)}
	for _, out := range r.Outcomes {
		if out.Succeeded() {
			s.Succeeded++
		} else {
			s.Failed++
		}
		if out.RetriesUsed > 0 {
			s.Retried++
		}
	}
	return s
}

// BoardSummary is the per-board breakdown persisted with the run summary.
type BoardSummary struct {
	Name      string `json:"board"`
	Total     int    `json:"total_articles"`
	Succeeded int    `json:"successful_articles"`
	Failed    int    `json:"failed_articles"`
	Retried   int    `json:"retried_articles"`
}

// RunSummary is returned by Engine.Run and persisted as the summary record.
// OK is true when at least one article succeeded across all boards.
type RunSummary struct {
	RunID  string         `json:"run_id"`
	OK     bool           `json:"ok"`
	Stats  StatsSnapshot  `json:"stats"`
	Boards []BoardSummary `json:"boards"`
}

// DefaultFallbackBoards returns the fixed board list used when hot-board
// discovery fails. The set mirrors PTT's perennially busiest boards.
func DefaultFallbackBoards() []Board {
	names := []string{
		"Gossiping", "Stock", "NBA", "Baseball", "C_Chat",
		"PC_Shopping", "DC_SALE", "MobileComm", "Lifeismoney", "car",
	}
	boards := make([]Board, 0, len(names))
	for _, name := range names {
		boards = append(boards, Board{
			Name: name,
			URL:  "https://www.ptt.cc/bbs/" + name + "/",
		})
	}
	return boards
}

// truncateContent caps content at max runes. Detail pages on busy boards can
// run to tens of kilobytes; result rows keep only the head.
func truncateContent(content string, max int) string {
	if max <= 0 {
		return content
	}
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max])
}

// boardIndexURL normalizes a board URL to its first index page.
func boardIndexURL(raw string) string {
	if strings.HasSuffix(raw, ".html") {
		return raw
	}
	return strings.TrimRight(raw, "/") + "/index.html"
}
