package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Call lifecycle metrics
	callsStartedTotal prometheus.Counter
	callsEndedTotal   *prometheus.CounterVec
	callsActive       prometheus.Gauge
	callDuration      prometheus.Histogram
	callStartRejected *prometheus.CounterVec

	// Reaper metrics
	reaperSweepsTotal   prometheus.Counter
	reaperDroppedTotal  prometheus.Counter
	reaperSweepDuration prometheus.Histogram
}

// New creates and registers all Prometheus metrics on a dedicated registry
func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		registry: registry,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: labels,
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name:        "http_requests_in_flight",
				Help:        "Number of HTTP requests currently being served",
				ConstLabels: labels,
			},
		),

		callsStartedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "calls_started_total",
				Help:        "Total number of calls started",
				ConstLabels: labels,
			},
		),
		callsEndedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "calls_ended_total",
				Help:        "Total number of calls ended, by terminal status",
				ConstLabels: labels,
			},
			[]string{"status"}, // ended, dropped
		),
		callsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name:        "calls_active",
				Help:        "Number of currently active calls",
				ConstLabels: labels,
			},
		),
		callDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "call_duration_seconds",
				Help:        "Duration of completed calls in seconds",
				ConstLabels: labels,
				Buckets:     []float64{30, 60, 300, 600, 1200, 1800, 3600, 7200},
			},
		),
		callStartRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "call_start_rejected_total",
				Help:        "Rejected call start attempts by error code",
				ConstLabels: labels,
			},
			[]string{"code"},
		),

		reaperSweepsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "reaper_sweeps_total",
				Help:        "Total number of stale-call sweeps",
				ConstLabels: labels,
			},
		),
		reaperDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "reaper_dropped_calls_total",
				Help:        "Total number of calls dropped by the reaper",
				ConstLabels: labels,
			},
		),
		reaperSweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "reaper_sweep_duration_seconds",
				Help:        "Duration of stale-call sweeps in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
		),
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpRequestsInFlight,
		m.callsStartedTotal,
		m.callsEndedTotal,
		m.callsActive,
		m.callDuration,
		m.callStartRejected,
		m.reaperSweepsTotal,
		m.reaperDroppedTotal,
		m.reaperSweepDuration,
	)

	return m
}

// Registry returns the dedicated Prometheus registry for the /metrics endpoint
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// HTTP metrics

func (m *Metrics) ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) IncHTTPInFlight() { m.httpRequestsInFlight.Inc() }
func (m *Metrics) DecHTTPInFlight() { m.httpRequestsInFlight.Dec() }

// Call metrics

func (m *Metrics) CallStarted() {
	m.callsStartedTotal.Inc()
	m.callsActive.Inc()
}

func (m *Metrics) CallEnded(status string, duration time.Duration) {
	m.callsEndedTotal.WithLabelValues(status).Inc()
	m.callsActive.Dec()
	m.callDuration.Observe(duration.Seconds())
}

func (m *Metrics) CallStartRejected(code string) {
	m.callStartRejected.WithLabelValues(code).Inc()
}

// Reaper metrics

func (m *Metrics) ReaperSwept(dropped int, duration time.Duration) {
	m.reaperSweepsTotal.Inc()
	m.reaperDroppedTotal.Add(float64(dropped))
	m.reaperSweepDuration.Observe(duration.Seconds())
}
