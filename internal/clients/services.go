package clients

import (
	"context"

	"github.com/materials-data-facility/connect/internal/flow"
	"github.com/materials-data-facility/connect/internal/metrics"
	"github.com/materials-data-facility/connect/internal/model"
	"github.com/materials-data-facility/connect/internal/notifier"
	"github.com/materials-data-facility/connect/internal/repo"
)

// Services are the components the api server and the task worker share.
type Services struct {
	Store    repo.StatusStore
	Flow     *flow.GlobusAutomateFlow
	Flows    *flow.AutomateManager
	Notifier *notifier.Notifier
	Metrics  *metrics.Metrics
}

// Services wires the status store, the flow and the change listeners.
// m may be nil.
func (f *Factory) Services(ctx context.Context, m *metrics.Metrics) (*Services, error) {
	store, err := f.StatusStore(ctx)
	if err != nil {
		return nil, err
	}

	handle, err := f.Flow(ctx)
	if err != nil {
		return nil, err
	}

	publisher, err := f.Publisher(ctx)
	if err != nil {
		return nil, err
	}

	s := &Services{
		Store:    store,
		Flow:     handle,
		Notifier: notifier.New(publisher),
		Metrics:  m,
	}

	s.Flows = flow.NewAutomateManager(handle, store, flow.WithChangeFunc(s.OnChange))

	return s, nil
}

// OnChange publishes a submission change and records it in the metrics.
func (s *Services) OnChange(ctx context.Context, before, after *model.Submission) {
	s.Notifier.Notify(ctx, before, after)
	s.Metrics.Observe(ctx, before, after)
}
