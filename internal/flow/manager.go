package flow

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"path"
	"strings"
	"time"

	"github.com/materials-data-facility/connect/internal/clients/globus"
	"github.com/materials-data-facility/connect/internal/errs"
	"github.com/materials-data-facility/connect/internal/log"
	"github.com/materials-data-facility/connect/internal/model"
	"github.com/materials-data-facility/connect/internal/repo"
	"github.com/materials-data-facility/connect/internal/status"
	"github.com/materials-data-facility/connect/internal/workflow"
)

const tagConnect = "mdf-connect"

var (
	ErrStartFlow     = errors.New("failed to start submission flow")
	ErrSyncFlow      = errors.New("failed to sync submission flow")
	ErrBuildInput    = errors.New("failed to build flow input")
	ErrNoDataSources = errors.New("submission has no data sources")
	ErrNoDestination = errors.New("submission has no destination")

	errUnchanged = errors.New("submission unchanged")
)

// Runner starts and watches flow runs.
type Runner interface {
	Run(ctx context.Context, input any, label string, tags []string) (string, error)
	RunStatus(ctx context.Context, runID string) (*RunStatus, error)
	CancelRun(ctx context.Context, runID string) error
}

var _ Runner = (*GlobusAutomateFlow)(nil)

// ChangeFunc is called after a submission's state or status code changed.
type ChangeFunc func(ctx context.Context, before, after *model.Submission)

// TransferItem is one entry of the transfer action input.
type TransferItem struct {
	SourcePath      string `json:"source_path"`
	DestinationPath string `json:"destination_path"`
	Recursive       bool   `json:"recursive"`
}

// Input is the body handed to a flow run.
type Input struct {
	SourceID              string         `json:"source_id"`
	Label                 string         `json:"label"`
	SourceEndpointID      string         `json:"source_endpoint_id"`
	DestinationEndpointID string         `json:"destination_endpoint_id"`
	DestinationPath       string         `json:"destination_path"`
	TransferItems         []TransferItem `json:"transfer_items"`
	UserIdentityID        string         `json:"user_identity_id"`
	UserEmail             string         `json:"user_email"`
}

// AutomateManager hands submissions to the flow and folds run progress
// back into their status records.
type AutomateManager struct {
	runner   Runner
	store    repo.StatusStore
	onChange []ChangeFunc
	now      func() time.Time
}

type ManagerOption func(*AutomateManager)

func WithChangeFunc(fn ChangeFunc) ManagerOption {
	return func(m *AutomateManager) {
		m.onChange = append(m.onChange, fn)
	}
}

func NewAutomateManager(runner Runner, store repo.StatusStore, opts ...ManagerOption) *AutomateManager {
	m := &AutomateManager{
		runner: runner,
		store:  store,
		now:    time.Now,
	}

	for _, o := range opts {
		o(m)
	}

	return m
}

// Label is the run label shown in the Globus web app.
func Label(sub *model.Submission) string {
	return "MDF Connect " + sub.SourceID
}

// BuildInput produces the flow input for a submission.
func BuildInput(sub *model.Submission) (*Input, error) {
	if len(sub.DataSources) == 0 {
		return nil, errs.Wrap(ErrBuildInput, ErrNoDataSources)
	}

	if sub.Destination.EndpointID == "" || sub.Destination.Path == "" {
		return nil, errs.Wrap(ErrBuildInput, ErrNoDestination)
	}

	items := make([]TransferItem, 0, len(sub.DataSources))

	for _, src := range sub.DataSources {
		recursive := strings.HasSuffix(src.Path, "/")
		dest := path.Join(sub.Destination.Path, path.Base(strings.TrimSuffix(src.Path, "/")))

		if recursive {
			dest += "/"
		}

		items = append(items, TransferItem{
			SourcePath:      src.Path,
			DestinationPath: dest,
			Recursive:       recursive,
		})
	}

	return &Input{
		SourceID:              sub.SourceID,
		Label:                 Label(sub),
		SourceEndpointID:      sub.DataSources[0].EndpointID,
		DestinationEndpointID: sub.Destination.EndpointID,
		DestinationPath:       sub.Destination.Path,
		TransferItems:         items,
		UserIdentityID:        sub.UserID,
		UserEmail:             sub.UserEmail,
	}, nil
}

func tags(sub *model.Submission) []string {
	out := []string{tagConnect, sub.SourceName}
	if sub.Test {
		out = append(out, "test")
	}

	return out
}

// Start runs the flow for a pending submission. Submissions that already
// carry a run id or left the pending state are skipped.
func (m *AutomateManager) Start(ctx context.Context, sourceID string) error {
	ctx = log.InjectSubmission(ctx, sourceID)

	sub, err := m.store.Get(ctx, sourceID)
	if err != nil {
		return errs.Wrap(ErrStartFlow, err)
	}

	if sub.FlowRunID != "" || workflow.State(sub.State) != workflow.StatePending {
		log.Debug(ctx, "submission flow already started", slog.String("state", sub.State))
		return nil
	}

	input, err := BuildInput(sub)
	if err != nil {
		return m.failStart(ctx, sourceID, err)
	}

	runID, err := m.runner.Run(ctx, input, Label(sub), tags(sub))
	if err != nil {
		return m.failStart(ctx, sourceID, err)
	}

	err = m.update(ctx, sourceID, func(s *model.Submission) (workflow.Transition, error) {
		if s.FlowRunID != "" {
			return "", workflow.NewTransitionError(workflow.TransitionStart)
		}

		code, err := s.Status()
		if err != nil {
			return "", err
		}

		code, err = code.Set(status.StepDataDownload, status.CodeNotRequested)
		if err != nil {
			return "", err
		}

		s.StatusCode = code.String()
		s.FlowRunID = runID
		s.FlowStatus = globus.RunStatusActive

		return workflow.TransitionStart, nil
	})
	if err != nil {
		log.Warn(ctx, "failed to record flow run, cancelling run",
			slog.String("runId", runID), log.ErrorAttr(err))

		cancelErr := m.runner.CancelRun(ctx, runID)
		if cancelErr != nil {
			log.Error(ctx, "failed to cancel orphaned flow run", cancelErr)
		}

		if errors.Is(err, workflow.ErrTransitionExecution) {
			return nil
		}

		return errs.Wrap(ErrStartFlow, errors.Join(err, cancelErr))
	}

	log.Info(ctx, "submission flow started", slog.String("runId", runID))

	return nil
}

func (m *AutomateManager) failStart(ctx context.Context, sourceID string, cause error) error {
	log.Error(ctx, "failed to start submission flow", cause)

	err := m.update(ctx, sourceID, func(s *model.Submission) (workflow.Transition, error) {
		if workflow.State(s.State) != workflow.StatePending {
			return "", errUnchanged
		}

		code, err := s.Status()
		if err != nil {
			return "", err
		}

		code, err = code.Set(status.StepDataDownload, status.CodeNotRequested)
		if err != nil {
			return "", err
		}

		code, err = code.Fail(status.StepDataTransfer)
		if err != nil {
			return "", err
		}

		s.StatusCode = code.String()
		s.SetMessage(status.StepDataTransfer, "Unable to start the data transfer: "+cause.Error())

		return workflow.TransitionFail, nil
	})
	if err != nil {
		return errs.Wrap(ErrStartFlow, errors.Join(cause, err))
	}

	return errs.Wrap(ErrStartFlow, cause)
}

// Sync fetches the remote run and folds its progress into the record.
// Submissions held for curation only record the remote state.
func (m *AutomateManager) Sync(ctx context.Context, sourceID string) error {
	ctx = log.InjectSubmission(ctx, sourceID)

	sub, err := m.store.Get(ctx, sourceID)
	if err != nil {
		return errs.Wrap(ErrSyncFlow, err)
	}

	if !sub.Active || sub.FlowRunID == "" {
		return nil
	}

	rs, err := m.runner.RunStatus(ctx, sub.FlowRunID)
	if err != nil {
		return errs.Wrap(ErrSyncFlow, err)
	}

	err = m.update(ctx, sourceID, func(s *model.Submission) (workflow.Transition, error) {
		if !s.Active || s.FlowRunID != sub.FlowRunID {
			return "", nil
		}

		Record(s, rs)

		if workflow.State(s.State) != workflow.StateInProgress {
			return "", nil
		}

		return Fold(s)
	})
	if err != nil {
		return errs.Wrap(ErrSyncFlow, err)
	}

	return nil
}

// Resume folds the last recorded run state without asking the service,
// used once a curator released the submission.
func (m *AutomateManager) Resume(ctx context.Context, sourceID string) error {
	err := m.update(ctx, sourceID, func(s *model.Submission) (workflow.Transition, error) {
		if workflow.State(s.State) != workflow.StateInProgress {
			return "", nil
		}

		return Fold(s)
	})
	if err != nil {
		return errs.Wrap(ErrSyncFlow, err)
	}

	return nil
}

// Cancel stops the submission's run, if it has one.
func (m *AutomateManager) Cancel(ctx context.Context, sub *model.Submission) error {
	if sub.FlowRunID == "" {
		return nil
	}

	return m.runner.CancelRun(ctx, sub.FlowRunID)
}

// update applies fn and the transition it returns in one conditional
// write. Nothing is written when the record did not change.
func (m *AutomateManager) update(
	ctx context.Context,
	sourceID string,
	fn func(*model.Submission) (workflow.Transition, error),
) error {
	var before model.Submission

	updated, err := m.store.Update(ctx, sourceID, func(s *model.Submission) error {
		before = *s
		before.FlowStates = maps.Clone(s.FlowStates)
		before.Messages = maps.Clone(s.Messages)

		transition, err := fn(s)
		if err != nil {
			return err
		}

		if transition != "" {
			err = workflow.Apply(ctx, s, transition, m.now().UTC())
			if err != nil {
				return err
			}
		}

		if !changed(&before, s) {
			return errUnchanged
		}

		return nil
	})
	if errors.Is(err, errUnchanged) {
		return nil
	}

	if err != nil {
		return err
	}

	if before.State != updated.State || before.StatusCode != updated.StatusCode {
		for _, fn := range m.onChange {
			fn(ctx, &before, updated)
		}
	}

	return nil
}

func changed(before, after *model.Submission) bool {
	return before.State != after.State ||
		before.StatusCode != after.StatusCode ||
		before.FlowRunID != after.FlowRunID ||
		before.FlowStatus != after.FlowStatus ||
		before.FlowError != after.FlowError ||
		!maps.Equal(before.FlowStates, after.FlowStates) ||
		!maps.Equal(before.Messages, after.Messages)
}
