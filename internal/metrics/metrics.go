// Package metrics exposes Prometheus collectors for the crawler.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	articlesTotal        *prometheus.CounterVec
	retriesTotal         prometheus.Counter
	inFlightFetches      prometheus.Gauge
	fetchDurationSeconds prometheus.Histogram

	once sync.Once
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		articlesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_articles_total",
				Help: "Total number of articles processed, labeled by board and outcome status.",
			},
			[]string{"board", "status"},
		)

		retriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_retries_total",
				Help: "Total number of article fetch retries.",
			},
		)

		inFlightFetches = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_in_flight_fetches",
				Help: "Number of page fetches currently in flight.",
			},
		)

		fetchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		)
	})
}

// Handler returns an http.Handler exposing the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveArticle increments the article counter for one terminal outcome.
func ObserveArticle(board, status string) {
	articlesTotal.WithLabelValues(board, status).Inc()
}

// AddRetries adds n to the retry counter.
func AddRetries(n int) {
	retriesTotal.Add(float64(n))
}

// IncInFlightFetches increments the in-flight fetch gauge.
func IncInFlightFetches() {
	inFlightFetches.Inc()
}

// DecInFlightFetches decrements the in-flight fetch gauge.
func DecInFlightFetches() {
	inFlightFetches.Dec()
}

// ObserveFetchDuration records one fetch latency.
func ObserveFetchDuration(d time.Duration) {
	fetchDurationSeconds.Observe(d.Seconds())
}
