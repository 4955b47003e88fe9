package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marktrabit"

// Metrics holds every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	remoteCalls    *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	sessionEvents  *prometheus.CounterVec
	eventStreams   prometheus.Gauge
	sweeps         *prometheus.CounterVec
}

// NewMetrics registers the collectors plus the Go and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_calls_total",
			Help:      "Bookmark repository calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		remoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_call_duration_seconds",
			Help:      "Bookmark repository call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session change events delivered to event streams.",
		}, []string{"type"}),
		eventStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_streams_open",
			Help:      "Open dashboard event streams.",
		}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_sweep_sessions_total",
			Help:      "Sessions handled by the sweeper by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.remoteCalls,
		m.remoteDuration,
		m.httpRequests,
		m.httpDuration,
		m.sessionEvents,
		m.eventStreams,
		m.sweeps,
	)

	return m
}

// Handler serves the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRemote records one repository call.
func (m *Metrics) ObserveRemote(op string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.remoteCalls.WithLabelValues(op, outcome(err)).Inc()
	m.remoteDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// SessionEvent counts an event pushed to a stream.
func (m *Metrics) SessionEvent(eventType string) {
	if m == nil {
		return
	}
	m.sessionEvents.WithLabelValues(eventType).Inc()
}

// StreamOpened and StreamClosed track open event streams.
func (m *Metrics) StreamOpened() {
	if m != nil {
		m.eventStreams.Inc()
	}
}

func (m *Metrics) StreamClosed() {
	if m != nil {
		m.eventStreams.Dec()
	}
}

// Swept records sweeper results.
func (m *Metrics) Swept(refreshed, expired int) {
	if m == nil {
		return
	}
	m.sweeps.WithLabelValues("refreshed").Add(float64(refreshed))
	m.sweeps.WithLabelValues("expired").Add(float64(expired))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
