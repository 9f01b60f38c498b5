package notifier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/materials-data-facility/connect/internal/log"
	"github.com/materials-data-facility/connect/internal/model"
)

var (
	ErrPublish       = errors.New("failed to publish event")
	ErrConnect       = errors.New("failed to connect to message broker")
	ErrMarshalEvent  = errors.New("failed to marshal event")
	ErrMissingTarget = errors.New("notifier target is required")
)

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close(ctx context.Context) error
}

// Notifier turns submission changes into published events.
type Notifier struct {
	publisher Publisher
	now       func() time.Time
}

func New(publisher Publisher) *Notifier {
	if publisher == nil {
		publisher = NoopPublisher{}
	}

	return &Notifier{publisher: publisher, now: time.Now}
}

// Notify publishes the change from before to after. Publishing is best
// effort: failures are logged and never reach the caller.
func (n *Notifier) Notify(ctx context.Context, before, after *model.Submission) {
	event := NewEvent(before, after, n.now())

	err := n.publisher.Publish(ctx, event)
	if err != nil {
		log.Error(ctx, "failed to publish submission event", err,
			slog.String("eventType", string(event.Type)),
			slog.String("sourceId", event.SourceID))
	}
}

func (n *Notifier) Close(ctx context.Context) error {
	return n.publisher.Close(ctx)
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close(context.Context) error { return nil }

// RecordingPublisher keeps events in memory.
type RecordingPublisher struct {
	Events []Event
	Err    error
}

func (r *RecordingPublisher) Publish(_ context.Context, event Event) error {
	if r.Err != nil {
		return r.Err
	}

	r.Events = append(r.Events, event)

	return nil
}

func (r *RecordingPublisher) Close(context.Context) error { return nil }
