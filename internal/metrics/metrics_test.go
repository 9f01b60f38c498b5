package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/zeebo/assert"

	"github.com/materials-data-facility/connect/internal/metrics"
	"github.com/materials-data-facility/connect/internal/model"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.Submission(metrics.OutcomeAccepted)
	m.Submission(metrics.OutcomeAccepted)
	m.Submission(metrics.OutcomeRejected)
	m.FlowStarted()
	m.FlowFailed()
	m.StateChanged("PENDING", "IN_PROGRESS")
	m.StateChanged("IN_PROGRESS", "IN_PROGRESS")
	m.SetActive(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submissions.WithLabelValues(metrics.OutcomeAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues(metrics.OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FlowStarts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FlowFails))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("IN_PROGRESS")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.Active))

	count, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.True(t, count > 0)
}

func TestNilMetrics(t *testing.T) {
	var m *metrics.Metrics

	m.Submission(metrics.OutcomeError)
	m.FlowStarted()
	m.FlowFailed()
	m.StateChanged("a", "b")
	m.SetActive(1)
}

func TestObserve(t *testing.T) {
	m := metrics.New(nil)

	pending := &model.Submission{SourceID: "a_v1", State: "PENDING"}
	running := &model.Submission{SourceID: "a_v1", State: "IN_PROGRESS", FlowRunID: "run-1"}
	failed := &model.Submission{SourceID: "a_v1", State: "FAILED", FlowRunID: "run-1"}

	m.Observe(t.Context(), nil, pending)
	m.Observe(t.Context(), pending, running)
	m.Observe(t.Context(), running, running)
	m.Observe(t.Context(), running, failed)
	m.Observe(t.Context(), running, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("PENDING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("IN_PROGRESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("FAILED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FlowStarts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FlowFails))
}
