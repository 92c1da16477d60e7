// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts finished requests by method, route pattern and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration observes request latency by method and route pattern.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// CommentsSubmitted counts comments accepted from visitors.
	CommentsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "blog_comments_submitted_total",
			Help: "Total number of visitor comments accepted for moderation.",
		},
	)

	// CommentsModerated counts moderation decisions by resulting status.
	CommentsModerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blog_comments_moderated_total",
			Help: "Total number of comments moderated, by resulting status.",
		},
		[]string{"status"},
	)

	// BackupRuns counts backup attempts by result ("ok" or "error").
	BackupRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blog_backup_runs_total",
			Help: "Total number of content backup runs, by result.",
		},
		[]string{"result"},
	)

	// RateLimited counts requests refused with 429, by limiter name.
	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Total number of requests rejected by a rate limiter.",
		},
		[]string{"limiter"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, CommentsSubmitted, CommentsModerated, BackupRuns, RateLimited)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
