// Package metrics defines Prometheus metrics for the tips API.
//
// Metric naming follows Prometheus conventions:
//   - tipsapi_ prefix for all custom metrics
//   - _total suffix for counters
//   - _seconds suffix for duration histograms
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	// LoginsTotal counts login attempts by result (success, failure).
	LoginsTotal *prometheus.CounterVec
	// GateRejectionsTotal counts requests refused by an auth gate, by error code.
	GateRejectionsTotal *prometheus.CounterVec
	// SessionsSweptTotal counts expired session rows removed by cleanup.
	SessionsSweptTotal prometheus.Counter
	// HTTPRequestsTotal counts served requests by method and status.
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTPRequestDurationSeconds observes request latency by method.
	HTTPRequestDurationSeconds *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tipsapi_logins_total",
				Help: "Total number of login attempts by result.",
			},
			[]string{"result"},
		),
		GateRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tipsapi_gate_rejections_total",
				Help: "Total number of requests rejected by an auth gate, by code.",
			},
			[]string{"code"},
		),
		SessionsSweptTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tipsapi_sessions_swept_total",
				Help: "Total number of expired sessions deleted by the cleanup sweep.",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tipsapi_http_requests_total",
				Help: "Total number of HTTP requests by method and status.",
			},
			[]string{"method", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tipsapi_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.LoginsTotal,
		m.GateRejectionsTotal,
		m.SessionsSweptTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveLogin records one login attempt. A nil receiver is a no-op.
func (m *Metrics) ObserveLogin(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.LoginsTotal.WithLabelValues(result).Inc()
}

// ObserveRejection records one gate rejection. A nil receiver is a no-op.
func (m *Metrics) ObserveRejection(code string) {
	if m == nil {
		return
	}
	m.GateRejectionsTotal.WithLabelValues(code).Inc()
}

// ObserveSweep records rows removed by cleanup. A nil receiver is a no-op.
func (m *Metrics) ObserveSweep(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsSweptTotal.Add(float64(n))
}

// ObserveRequest records one served HTTP request. A nil receiver is a no-op.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDurationSeconds.WithLabelValues(method).Observe(elapsed.Seconds())
}
