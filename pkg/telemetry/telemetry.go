// Package telemetry exposes engine counters for Prometheus scraping.
// All methods are nil-receiver safe so the engines can carry an
// optional *Metrics without guarding every increment.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the probe and detection instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	probesTotal     *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	detectionsTotal *prometheus.CounterVec
	responseSeconds prometheus.Histogram
}

// New creates a Metrics backed by its own registry, so tests and
// embedders never collide with the global default registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		probesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edgeprobe_port_probes_total",
			Help: "TCP port probes by outcome (open, closed, error).",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edgeprobe_http_requests_total",
			Help: "HTTP detection and bypass requests by outcome.",
		}, []string{"outcome"}),
		detectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edgeprobe_detections_total",
			Help: "Protection service detections by service.",
		}, []string{"service"}),
		responseSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "edgeprobe_http_response_seconds",
			Help:    "HTTP response time distribution.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(m.probesTotal, m.httpRequests, m.detectionsTotal, m.responseSeconds)
	return m
}

// ObserveProbe records one port probe outcome.
func (m *Metrics) ObserveProbe(outcome string) {
	if m == nil {
		return
	}
	m.probesTotal.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one HTTP request outcome and its latency.
func (m *Metrics) ObserveRequest(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(outcome).Inc()
	if seconds > 0 {
		m.responseSeconds.Observe(seconds)
	}
}

// ObserveDetection records one protection-service detection.
func (m *Metrics) ObserveDetection(service string) {
	if m == nil {
		return
	}
	m.detectionsTotal.WithLabelValues(service).Inc()
}

// Handler serves the metrics in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the backing registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
