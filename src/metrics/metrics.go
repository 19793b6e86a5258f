// Package metrics holds the Prometheus collectors of the API server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "memo_app"

// Collector owns a private registry so tests can create as many as they like
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	MemoOps      *prometheus.CounterVec
	AIRequests   *prometheus.CounterVec
	AIDuration   *prometheus.HistogramVec
}

// NewCollector creates and registers every collector
func NewCollector() *Collector {
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
		MemoOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "memo_operations_total",
				Help:      "Memo operations by kind and outcome",
			},
			[]string{"operation", "status"},
		),
		AIRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ai_requests_total",
				Help:      "AI generation requests by task and outcome",
			},
			[]string{"task", "status"},
		),
		AIDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ai_request_duration_seconds",
				Help:      "AI generation latency in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"task"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.MemoOps,
		c.AIRequests,
		c.AIDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// RecordRequest records one finished HTTP request
func (c *Collector) RecordRequest(method, route string, status int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordMemoOp records one memo operation
func (c *Collector) RecordMemoOp(operation string, err error) {
	c.MemoOps.WithLabelValues(operation, outcome(err)).Inc()
}

// RecordAI records one AI generation request
func (c *Collector) RecordAI(task string, elapsed time.Duration, err error) {
	c.AIRequests.WithLabelValues(task, outcome(err)).Inc()
	c.AIDuration.WithLabelValues(task).Observe(elapsed.Seconds())
}

// Register adds an extra collector, e.g. a gauge owned by another package
func (c *Collector) Register(collector prometheus.Collector) error {
	return c.registry.Register(collector)
}

// Handler serves the exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
