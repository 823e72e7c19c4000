package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *ClientMetrics {
	t.Helper()
	m, err := NewClientMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestNewClientMetrics_DoubleRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewClientMetrics(registry)
	require.NoError(t, err)

	_, err = NewClientMetrics(registry)
	assert.Error(t, err)
}

func TestClientMetrics_Counters(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordSubmission(OutcomeAccepted)
	m.RecordSubmission(OutcomeAccepted)
	m.RecordSubmission(OutcomeRejected)
	m.RecordStreamMessage("progress")
	m.RecordProtocolError()
	m.RecordBackendRequest("generate", nil)
	m.RecordBackendRequest("generate", errors.New("down"))

	assert.InDelta(t, 2, testutil.ToFloat64(m.submissionsTotal.WithLabelValues(OutcomeAccepted)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.submissionsTotal.WithLabelValues(OutcomeRejected)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.streamMessagesTotal.WithLabelValues("progress")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.protocolErrorsTotal), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.backendRequestsTotal.WithLabelValues("generate", "error")), 0)
}

func TestClientMetrics_ActiveTasks(t *testing.T) {
	m := newTestMetrics(t)

	m.TaskStarted()
	m.TaskStarted()
	m.TaskFinished(OutcomeCompleted, "none")

	assert.InDelta(t, 1, testutil.ToFloat64(m.activeTasks), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.tasksTotal.WithLabelValues(OutcomeCompleted, "none")), 0)
}

func TestClientMetrics_RedrawTick(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordRedrawTick("spectrum", 2*time.Millisecond)

	assert.InDelta(t, 1, testutil.ToFloat64(m.redrawTicksTotal.WithLabelValues("spectrum")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.redrawTickDuration))
}

func TestClientMetrics_NilIsNoop(t *testing.T) {
	var m *ClientMetrics

	assert.NotPanics(t, func() {
		m.RecordSubmission(OutcomeAccepted)
		m.RecordStreamMessage("progress")
		m.RecordProtocolError()
		m.TaskStarted()
		m.TaskFinished(OutcomeFailed, "transport")
		m.RecordRedrawTick("waveform", time.Millisecond)
		m.RecordBackendRequest("presets", nil)
	})
}
