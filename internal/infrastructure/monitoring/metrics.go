package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "syncrunner"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Invocation metrics
	InvocationsTotal   *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
	InvocationsActive  prometheus.Gauge
	ScriptErrors       *prometheus.CounterVec

	// Outbound metrics
	OutboundRequests *prometheus.CounterVec
	OutboundDuration *prometheus.HistogramVec
	BreakerChanges   *prometheus.CounterVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		InvocationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations_total",
				Help:      "Total number of script invocations",
			},
			[]string{"kind", "result"},
		),
		InvocationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "invocation_duration_seconds",
				Help:      "Script invocation duration in seconds",
				Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"kind"},
		),
		InvocationsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "invocations_in_flight",
				Help:      "Number of invocations currently running",
			},
		),
		ScriptErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "script_errors_total",
				Help:      "Failed invocations by error type",
			},
			[]string{"type"},
		),
		OutboundRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbound_requests_total",
				Help:      "Outbound HTTP requests made by scripts",
			},
			[]string{"method", "outcome"},
		),
		OutboundDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "outbound_request_duration_seconds",
				Help:      "Outbound HTTP request duration in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method"},
		),
		BreakerChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "breaker_transitions_total",
				Help:      "Circuit breaker state transitions by host",
			},
			[]string{"host", "to"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
	}
}

// InvocationStarted increments the in-flight gauge.
func (m *Metrics) InvocationStarted() {
	if m == nil {
		return
	}
	m.InvocationsActive.Inc()
}

// RecordInvocation records a finished invocation. errorType is empty on success.
func (m *Metrics) RecordInvocation(kind, errorType string, duration time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if errorType != "" {
		result = "failure"
		m.ScriptErrors.WithLabelValues(errorType).Inc()
	}
	m.InvocationsActive.Dec()
	m.InvocationsTotal.WithLabelValues(kind, result).Inc()
	m.InvocationDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordOutbound records one outbound HTTP call. outcome is "ok" or a failure code.
func (m *Metrics) RecordOutbound(method, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.OutboundRequests.WithLabelValues(method, outcome).Inc()
	m.OutboundDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordBreakerChange records a circuit breaker transition.
func (m *Metrics) RecordBreakerChange(host, to string) {
	if m == nil {
		return
	}
	m.BreakerChanges.WithLabelValues(host, to).Inc()
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
