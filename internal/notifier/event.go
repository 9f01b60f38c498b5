package notifier

import (
	"time"

	"github.com/materials-data-facility/connect/internal/model"
	"github.com/materials-data-facility/connect/internal/status"
	"github.com/materials-data-facility/connect/internal/workflow"
)

// EventType names what happened to a submission.
type EventType string

const (
	EventSubmitted EventType = "submission.submitted"
	EventProgress  EventType = "submission.progress"
	EventHeld      EventType = "submission.held"
	EventSucceeded EventType = "submission.succeeded"
	EventFailed    EventType = "submission.failed"
	EventCancelled EventType = "submission.cancelled"
)

// Event is published whenever a submission changes state or status code.
type Event struct {
	Type          EventType           `json:"type"`
	SourceID      string              `json:"source_id"`
	SourceName    string              `json:"source_name"`
	Version       int                 `json:"version"`
	UserID        string              `json:"user_id"`
	State         string              `json:"state"`
	PreviousState string              `json:"previous_state,omitempty"`
	StatusCode    string              `json:"status_code"`
	Steps         []status.StepStatus `json:"steps"`
	Test          bool                `json:"test"`
	Time          time.Time           `json:"time"`
}

// NewEvent describes the change from before to after. before is nil for
// new submissions.
func NewEvent(before, after *model.Submission, now time.Time) Event {
	ev := Event{
		Type:       eventType(before, after),
		SourceID:   after.SourceID,
		SourceName: after.SourceName,
		Version:    after.Version,
		UserID:     after.UserID,
		State:      after.State,
		StatusCode: after.StatusCode,
		Steps:      after.Translate(),
		Test:       after.Test,
		Time:       now.UTC(),
	}

	if before != nil {
		ev.PreviousState = before.State
	}

	return ev
}

func eventType(before, after *model.Submission) EventType {
	if before == nil {
		return EventSubmitted
	}

	if before.State == after.State {
		return EventProgress
	}

	switch workflow.State(after.State) {
	case workflow.StateAwaitingCuration:
		return EventHeld
	case workflow.StateSucceeded:
		return EventSucceeded
	case workflow.StateFailed:
		return EventFailed
	case workflow.StateCancelled:
		return EventCancelled
	case workflow.StatePending, workflow.StateInProgress:
		fallthrough
	default:
		return EventProgress
	}
}
