package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the service's Prometheus collectors. A nil *Metrics is a no-op.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	rmaSteps        *prometheus.CounterVec
	publishFailures *prometheus.CounterVec
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "Total number of HTTP requests."},
			[]string{"route", "method", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_errors_total", Help: "HTTP errors by domain error code."},
			[]string{"route", "method", "code"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "ticket_transitions_total", Help: "Applied ticket transitions."},
			[]string{"action", "status"},
		),
		rmaSteps: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "rma_steps_total", Help: "Applied RMA steps."},
			[]string{"step"},
		),
		publishFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "event_publish_failures_total", Help: "Event handler failures by sink."},
			[]string{"sink", "event_type"},
		),
	}
	reg.MustRegister(
		m.requests, m.latency, m.errors, m.transitions, m.rmaSteps, m.publishFailures,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest counts a request and observes its latency.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError counts an error response by its domain code.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordTransition counts a ticket moving to status through action.
func (m *Metrics) RecordTransition(action, status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, status).Inc()
}

// RecordRMAStep counts an applied RMA step.
func (m *Metrics) RecordRMAStep(step string) {
	if m == nil {
		return
	}
	m.rmaSteps.WithLabelValues(step).Inc()
}

// RecordPublishFailure counts a failed event handler.
func (m *Metrics) RecordPublishFailure(sink, eventType string) {
	if m == nil {
		return
	}
	m.publishFailures.WithLabelValues(sink, eventType).Inc()
}
