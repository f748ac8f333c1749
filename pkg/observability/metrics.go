package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Analysis metrics
	SamplesAccepted *prometheus.CounterVec
	SamplesRejected *prometheus.CounterVec
	Stacks          *prometheus.GaugeVec
	ArchiveFailures *prometheus.CounterVec

	// Modeling metrics
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Query bus metrics
	Queries *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry, so that several
// collectors can coexist in tests.
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
		SamplesAccepted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "samples_accepted_total",
				Help:      "Samples folded into an aggregation",
			},
			[]string{"data_source"},
		),
		SamplesRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "samples_rejected_total",
				Help:      "Samples rejected by inference or merge",
			},
			[]string{"data_source"},
		),
		Stacks: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stack_depth",
				Help:      "Number of versions reachable on a version stack",
			},
			[]string{"kind", "stream"},
		),
		ArchiveFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "archive_failures_total",
				Help:      "Snapshots that could not be archived",
			},
			[]string{"kind"},
		),
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Schema operations invoked",
			},
			[]string{"operation", "status"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Schema operation duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"operation"},
		),
		Queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Queries handled by the query bus",
			},
			[]string{"query", "status"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.SamplesAccepted,
		c.SamplesRejected,
		c.Stacks,
		c.ArchiveFailures,
		c.Operations,
		c.OperationDuration,
		c.Queries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (c *Collector) SamplesIngested(dataSourceID string, accepted, rejected int) {
	c.SamplesAccepted.WithLabelValues(dataSourceID).Add(float64(accepted))
	c.SamplesRejected.WithLabelValues(dataSourceID).Add(float64(rejected))
}

func (c *Collector) OperationInvoked(operation string, err error, elapsed time.Duration) {
	c.Operations.WithLabelValues(operation, status(err)).Inc()
	c.OperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (c *Collector) StackDepth(kind, streamID string, depth int) {
	c.Stacks.WithLabelValues(kind, streamID).Set(float64(depth))
}

func (c *Collector) ArchiveFailed(kind string) {
	c.ArchiveFailures.WithLabelValues(kind).Inc()
}

func (c *Collector) QueryHandled(queryType string, err error) {
	c.Queries.WithLabelValues(queryType, status(err)).Inc()
}

// RecordHTTP records one served request
func (c *Collector) RecordHTTP(method, route string, code int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Registry returns the Prometheus registry for this collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
