// Package metrics exposes Prometheus collectors for HTTP traffic and archival runs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	archiveRuns   *prometheus.CounterVec
	archivedLines prometheus.Counter
	lastArchive   prometheus.Gauge
}

// New registers the service collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orders",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orders",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		archiveRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orders",
			Name:      "archive_runs_total",
			Help:      "Archival runs by result.",
		}, []string{"result"}),
		archivedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orders",
			Name:      "archived_lines_total",
			Help:      "Order lines moved from the live table to the archive.",
		}),
		lastArchive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "orders",
			Name:      "archive_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful archival run.",
		}),
	}
	m.registry.MustRegister(
		m.httpRequests, m.httpDuration, m.archiveRuns, m.archivedLines, m.lastArchive,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveArchiveRun records the outcome of one archival run.
func (m *Metrics) ObserveArchiveRun(moved int64, finishedAt time.Time, err error) {
	if err != nil {
		m.archiveRuns.WithLabelValues("error").Inc()
		return
	}
	m.archiveRuns.WithLabelValues("ok").Inc()
	m.archivedLines.Add(float64(moved))
	m.lastArchive.Set(float64(finishedAt.Unix()))
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
