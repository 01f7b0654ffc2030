package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Cart engine metrics
	Mutations       *prometheus.CounterVec
	StorageFailures *prometheus.CounterVec
	Mirrors         *prometheus.CounterVec
	Drains          *prometheus.CounterVec
	DrainedLines    prometheus.Counter
}

// NewCollector creates a new metrics collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutations_total",
				Help:      "Total number of cart and wishlist mutations",
			},
			[]string{"aggregate", "operation"},
		),
		StorageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_failures_total",
				Help:      "Total number of failed snapshot writes",
			},
			[]string{"operation"},
		),
		Mirrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mirror_calls_total",
				Help:      "Total number of authenticated add-to-cart mirror calls",
			},
			[]string{"status"},
		),
		Drains: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "drains_total",
				Help:      "Total number of guest cart drains by outcome",
			},
			[]string{"outcome"},
		),
		DrainedLines: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "drained_lines_total",
				Help:      "Total number of line items delivered by successful drains",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Mutations,
		c.StorageFailures,
		c.Mirrors,
		c.Drains,
		c.DrainedLines,
	)

	return c
}

// Registry returns the prometheus registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// RecordHTTPRequest records one served request
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordMutation counts a cart or wishlist mutation
func (c *Collector) RecordMutation(aggregate, operation string) {
	c.Mutations.WithLabelValues(aggregate, operation).Inc()
}

// RecordStorageFailure counts a failed snapshot write
func (c *Collector) RecordStorageFailure(operation string) {
	c.StorageFailures.WithLabelValues(operation).Inc()
}

// RecordMirror counts a mirror call
func (c *Collector) RecordMirror(success bool) {
	c.Mirrors.WithLabelValues(statusLabel(success)).Inc()
}

// RecordDrain counts a drain attempt; lines is only added on success
func (c *Collector) RecordDrain(outcome string, lines int) {
	c.Drains.WithLabelValues(outcome).Inc()
	if outcome == DrainSucceeded {
		c.DrainedLines.Add(float64(lines))
	}
}

// Drain outcomes
const (
	DrainSucceeded = "succeeded"
	DrainFailed    = "failed"
	DrainSkipped   = "skipped"
)

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
