package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/materials-data-facility/connect/internal/model"
	"github.com/materials-data-facility/connect/internal/workflow"
)

const (
	namespace = "mdf_connect"

	labelOutcome = "outcome"
	labelState   = "state"
)

// Submission outcomes.
const (
	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

// Metrics holds the service collectors.
type Metrics struct {
	Submissions *prometheus.CounterVec
	FlowStarts  prometheus.Counter
	FlowFails   prometheus.Counter
	Transitions *prometheus.CounterVec
	Active      prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Submissions received, by outcome",
		}, []string{labelOutcome}),
		FlowStarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_runs_started_total",
			Help:      "Flow runs started",
		}),
		FlowFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_runs_failed_total",
			Help:      "Flow runs that failed to start or failed remotely",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_state_changes_total",
			Help:      "Submission state changes, by new state",
		}, []string{labelState}),
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "submissions_active",
			Help:      "Active submissions seen by the last sync",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Submissions, m.FlowStarts, m.FlowFails, m.Transitions, m.Active)
	}

	return m
}

// Submission counts one submission attempt.
func (m *Metrics) Submission(outcome string) {
	if m == nil {
		return
	}

	m.Submissions.WithLabelValues(outcome).Inc()
}

// StateChanged records a submission moving between lifecycle states.
func (m *Metrics) StateChanged(before, after string) {
	if m == nil || before == after {
		return
	}

	m.Transitions.WithLabelValues(after).Inc()
}

func (m *Metrics) FlowStarted() {
	if m == nil {
		return
	}

	m.FlowStarts.Inc()
}

func (m *Metrics) FlowFailed() {
	if m == nil {
		return
	}

	m.FlowFails.Inc()
}

func (m *Metrics) SetActive(n int) {
	if m == nil {
		return
	}

	m.Active.Set(float64(n))
}

// Observe records a submission change. It has the shape of a flow change
// callback so it can be registered next to the notifier.
func (m *Metrics) Observe(_ context.Context, before, after *model.Submission) {
	if m == nil || after == nil {
		return
	}

	prevState, prevRun := "", ""
	if before != nil {
		prevState, prevRun = before.State, before.FlowRunID
	}

	if prevRun == "" && after.FlowRunID != "" {
		m.FlowStarted()
	}

	m.StateChanged(prevState, after.State)

	if after.State == workflow.StateFailed.String() && prevState != after.State {
		m.FlowFailed()
	}
}
