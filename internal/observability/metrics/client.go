// Package metrics provides Prometheus collectors for the signalscope client.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for submissions and terminal task states.
const (
	OutcomeAccepted   = "accepted"
	OutcomeRejected   = "rejected"
	OutcomeFailed     = "failed"
	OutcomeCompleted  = "completed"
	OutcomeSuperseded = "superseded"
)

// ClientMetrics contains Prometheus metrics for generation tasks and the
// live redraw loop.
//
// A nil *ClientMetrics is valid and records nothing.
type ClientMetrics struct {
	registry *prometheus.Registry

	submissionsTotal     *prometheus.CounterVec
	streamMessagesTotal  *prometheus.CounterVec
	protocolErrorsTotal  prometheus.Counter
	tasksTotal           *prometheus.CounterVec
	activeTasks          prometheus.Gauge
	redrawTicksTotal     *prometheus.CounterVec
	redrawTickDuration   prometheus.Histogram
	backendRequestsTotal *prometheus.CounterVec
}

// NewClientMetrics creates and registers new client metrics
func NewClientMetrics(registry *prometheus.Registry) (*ClientMetrics, error) {
	m := &ClientMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ClientMetrics) initMetrics() error {
	m.submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalscope_submissions_total",
			Help: "Total number of generation submissions",
		},
		[]string{"outcome"}, // accepted, rejected, failed
	)

	m.streamMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalscope_stream_messages_total",
			Help: "Total number of progress stream messages received",
		},
		[]string{"status"},
	)

	m.protocolErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "signalscope_protocol_errors_total",
		Help: "Total number of unparseable or malformed progress messages",
	})

	m.tasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalscope_tasks_total",
			Help: "Total number of generation tasks by terminal outcome",
		},
		[]string{"outcome", "kind"},
	)

	m.activeTasks = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "signalscope_active_tasks",
		Help: "Number of generation tasks currently streaming",
	})

	m.redrawTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalscope_redraw_ticks_total",
			Help: "Total number of live redraw ticks",
		},
		[]string{"tab"},
	)

	m.redrawTickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "signalscope_redraw_tick_duration_seconds",
		Help: "Time taken to sample and draw one live frame",
		// 0.5ms to ~250ms
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 10),
	})

	m.backendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalscope_backend_requests_total",
			Help: "Total number of backend HTTP requests",
		},
		[]string{"endpoint", "status"}, // status: success, error
	)

	return nil
}

// RecordSubmission counts one submission attempt.
func (m *ClientMetrics) RecordSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

// RecordStreamMessage counts one parsed progress message.
func (m *ClientMetrics) RecordStreamMessage(status string) {
	if m == nil {
		return
	}
	m.streamMessagesTotal.WithLabelValues(status).Inc()
}

// RecordProtocolError counts one malformed progress message.
func (m *ClientMetrics) RecordProtocolError() {
	if m == nil {
		return
	}
	m.protocolErrorsTotal.Inc()
}

// TaskStarted increments the active task gauge.
func (m *ClientMetrics) TaskStarted() {
	if m == nil {
		return
	}
	m.activeTasks.Inc()
}

// TaskFinished decrements the active task gauge and counts the outcome.
func (m *ClientMetrics) TaskFinished(outcome, kind string) {
	if m == nil {
		return
	}
	m.activeTasks.Dec()
	m.tasksTotal.WithLabelValues(outcome, kind).Inc()
}

// RecordRedrawTick counts one live tick for tab and observes its duration.
func (m *ClientMetrics) RecordRedrawTick(tab string, d time.Duration) {
	if m == nil {
		return
	}
	m.redrawTicksTotal.WithLabelValues(tab).Inc()
	m.redrawTickDuration.Observe(d.Seconds())
}

// RecordBackendRequest counts one backend call.
func (m *ClientMetrics) RecordBackendRequest(endpoint string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.backendRequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// Describe implements the Collector interface
func (m *ClientMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.submissionsTotal.Describe(ch)
	m.streamMessagesTotal.Describe(ch)
	m.protocolErrorsTotal.Describe(ch)
	m.tasksTotal.Describe(ch)
	m.activeTasks.Describe(ch)
	m.redrawTicksTotal.Describe(ch)
	m.redrawTickDuration.Describe(ch)
	m.backendRequestsTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *ClientMetrics) Collect(ch chan<- prometheus.Metric) {
	m.submissionsTotal.Collect(ch)
	m.streamMessagesTotal.Collect(ch)
	m.protocolErrorsTotal.Collect(ch)
	m.tasksTotal.Collect(ch)
	m.activeTasks.Collect(ch)
	m.redrawTicksTotal.Collect(ch)
	m.redrawTickDuration.Collect(ch)
	m.backendRequestsTotal.Collect(ch)
}
