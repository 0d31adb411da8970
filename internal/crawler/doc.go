// Package crawler implements the crawl orchestration engine: board and
// article scheduling under bounded concurrency, per-item retry, and run
// statistics.
package crawler
