// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "finances"

// ─── HTTP ──────────────────────────────────────────────────────────────────

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by method, route pattern and status code.",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by method and route pattern.",
	Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
}, []string{"method", "route"})

var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Requests rejected by the rate limiter.",
})

var SuspiciousRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "suspicious_requests_total",
	Help:      "Requests flagged by the security detector, by reason.",
}, []string{"reason"})

// ─── Ledger ────────────────────────────────────────────────────────────────

var LedgerWrites = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "writes_total",
	Help:      "Ledger writes by operation and result.",
}, []string{"op", "result"})

var CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "cache_lookups_total",
	Help:      "Summary cache lookups by cache name and outcome.",
}, []string{"cache", "outcome"})

// ─── Events and mirror ─────────────────────────────────────────────────────

var EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "events",
	Name:      "published_total",
	Help:      "Ledger events published, by kind and result.",
}, []string{"kind", "result"})

var MirrorSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "mirror",
	Name:      "syncs_total",
	Help:      "Rows pushed to the spreadsheet mirror, by source and result.",
}, []string{"source", "result"})

var MirrorPending = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "mirror",
	Name:      "pending_rows",
	Help:      "Rows seen pending in the last backfill pass.",
})

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// ObserveHTTP records one finished request.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
