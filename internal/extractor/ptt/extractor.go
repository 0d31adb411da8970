// Package ptt extracts structured records from PTT's server-rendered pages.
package ptt

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pttcrawl/hotboards-crawler/internal/crawler"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Extractor parses hot-board, board-index, and article-detail markup.
type Extractor struct {
	baseURL   string
	maxBoards int
	maxPosts  int
}

// New builds an Extractor. baseURL prefixes the relative hrefs PTT emits;
// maxBoards and maxPosts cap the listing sizes (0 means unlimited).
func New(baseURL string, maxBoards, maxPosts int) *Extractor {
	return &Extractor{
		baseURL:   strings.TrimRight(baseURL, "/"),
		maxBoards: maxBoards,
		maxPosts:  maxPosts,
	}
}

// Boards parses the hot-boards page into a board list.
func (e *Extractor) Boards(markup []byte) ([]crawler.Board, error) {
	doc, err := parse(markup)
	if err != nil {
		return nil, err
	}

	var boards []crawler.Board
	doc.Find("a.board").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if e.maxBoards > 0 && len(boards) >= e.maxBoards {
			return false
		}
		name := strings.TrimSpace(sel.Find("div.board-name").Text())
		href, ok := sel.Attr("href")
		if name == "" || !ok {
			return true
		}
		boards = append(boards, crawler.Board{Name: name, URL: e.baseURL + href})
		return true
	})
	if len(boards) == 0 {
		return nil, &crawler.ExtractError{
			Kind:   crawler.KindMalformedPage,
			Detail: "no boards found",
		}
	}
	return boards, nil
}

// Posts parses a board index page into post references. Entries without a
// title link (deleted posts) are skipped.
func (e *Extractor) Posts(board crawler.Board, markup []byte) ([]crawler.PostRef, error) {
	doc, err := parse(markup)
	if err != nil {
		return nil, err
	}

	entries := doc.Find(".r-ent")
	if entries.Length() == 0 {
		return nil, &crawler.ExtractError{
			Kind:   crawler.KindMalformedPage,
			Detail: "no post entries found",
		}
	}

	var posts []crawler.PostRef
	entries.EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if e.maxPosts > 0 && len(posts) >= e.maxPosts {
			return false
		}
		link := sel.Find(".title a")
		href, ok := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		if !ok || title == "" {
			return true
		}
		posts = append(posts, crawler.PostRef{
			Title:  title,
			Link:   e.baseURL + href,
			Author: strings.TrimSpace(sel.Find(".author").Text()),
			Date:   strings.TrimSpace(sel.Find(".date").Text()),
			Board:  board.Name,
		})
		return true
	})
	return posts, nil
}

// Detail parses an article page into its content and push count. A missing
// main content node is malformed; a whitespace-only body is empty.
func (e *Extractor) Detail(markup []byte) (crawler.Detail, error) {
	doc, err := parse(markup)
	if err != nil {
		return crawler.Detail{}, err
	}

	main := doc.Find("#main-content")
	if main.Length() == 0 {
		return crawler.Detail{}, &crawler.ExtractError{
			Kind:   crawler.KindMalformedPage,
			Detail: "main content missing",
		}
	}
	content := strings.TrimSpace(whitespaceRun.ReplaceAllString(main.Text(), " "))
	if content == "" {
		return crawler.Detail{}, &crawler.ExtractError{
			Kind:   crawler.KindEmptyContent,
			Detail: "article body is empty",
		}
	}
	return crawler.Detail{
		Content:   content,
		PushCount: doc.Find(".push").Length(),
	}, nil
}

func parse(markup []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, &crawler.ExtractError{
			Kind:   crawler.KindMalformedPage,
			Detail: err.Error(),
		}
	}
	return doc, nil
}
