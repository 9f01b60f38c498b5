package manager

import (
	"context"
	"time"

	"github.com/materials-data-facility/connect/internal/async"
	"github.com/materials-data-facility/connect/internal/config"
	"github.com/materials-data-facility/connect/internal/flow"
	"github.com/materials-data-facility/connect/internal/metrics"
	"github.com/materials-data-facility/connect/internal/model"
	"github.com/materials-data-facility/connect/internal/repo"
	"github.com/materials-data-facility/connect/internal/workflow"
	mdfcontext "github.com/materials-data-facility/connect/utils/context"
)

// maxVersionAttempts bounds how often Submit moves to the next version
// after losing a create race.
const maxVersionAttempts = 3

// FlowController is the part of the flow manager submissions need.
type FlowController interface {
	Cancel(ctx context.Context, sub *model.Submission) error
	Resume(ctx context.Context, sourceID string) error
}

var _ FlowController = (*flow.AutomateManager)(nil)

// Submissions is the API facing side of the service.
type Submissions interface {
	Submit(ctx context.Context, user mdfcontext.Identity, req *model.SubmissionRequest) (*SubmitResult, error)
	Status(ctx context.Context, user mdfcontext.Identity, sourceID string) (*model.Submission, error)
	List(ctx context.Context, user mdfcontext.Identity) ([]*model.Submission, error)
	Cancel(ctx context.Context, user mdfcontext.Identity, sourceID string) (*model.Submission, error)
	Curate(
		ctx context.Context,
		curator mdfcontext.Identity,
		sourceID string,
		accept bool,
		reason string,
	) (*model.Submission, error)
}

var _ Submissions = (*SubmissionManager)(nil)

// SubmitResult identifies the stored submission. Duplicate is set when an
// identical active submission was returned instead of a new one.
type SubmitResult struct {
	SourceID  string
	Version   int
	Duplicate bool
}

// SubmissionManager validates submissions, keeps their version history and
// hands new versions to the task queue.
type SubmissionManager struct {
	store       repo.StatusStore
	flows       FlowController
	asyncClient async.Client
	cfg         *config.Config
	metrics     *metrics.Metrics
	onChange    []flow.ChangeFunc
	now         func() time.Time
}

type Option func(*SubmissionManager)

func WithChangeFunc(fn flow.ChangeFunc) Option {
	return func(m *SubmissionManager) {
		m.onChange = append(m.onChange, fn)
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *SubmissionManager) {
		m.metrics = mt
	}
}

func NewSubmissionManager(
	store repo.StatusStore,
	flows FlowController,
	asyncClient async.Client,
	cfg *config.Config,
	opts ...Option,
) *SubmissionManager {
	m := &SubmissionManager{
		store:       store,
		flows:       flows,
		asyncClient: asyncClient,
		cfg:         cfg,
		now:         time.Now,
	}

	for _, o := range opts {
		o(m)
	}

	return m
}

func (m *SubmissionManager) notify(ctx context.Context, before, after *model.Submission) {
	for _, fn := range m.onChange {
		fn(ctx, before, after)
	}
}

// transition applies t to the stored record and reports the change.
func (m *SubmissionManager) transition(
	ctx context.Context,
	sub *model.Submission,
	t workflow.Transition,
	extra ...repo.MutateFunc,
) (*model.Submission, error) {
	before := *sub

	lifecycle := workflow.NewLifecycle(sub, m.store)

	err := lifecycle.ApplyTransition(ctx, t, extra...)
	if err != nil {
		return nil, err
	}

	m.notify(ctx, &before, lifecycle.Submission)

	return lifecycle.Submission, nil
}

// canManage reports whether user may cancel or read sub regardless of ACL.
func (m *SubmissionManager) canManage(user mdfcontext.Identity, sub *model.Submission) bool {
	return sub.UserID == user.UserID || m.cfg.IsCurator(user.UserID)
}
