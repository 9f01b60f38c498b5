package manager

import (
	"context"
	"errors"
	"log/slog"

	"github.com/materials-data-facility/connect/internal/errs"
	"github.com/materials-data-facility/connect/internal/log"
	"github.com/materials-data-facility/connect/internal/model"
	"github.com/materials-data-facility/connect/internal/repo"
	"github.com/materials-data-facility/connect/internal/status"
	"github.com/materials-data-facility/connect/internal/workflow"
	mdfcontext "github.com/materials-data-facility/connect/utils/context"
)

// Status returns a submission the user may read. A source name without a
// version resolves to its latest version.
func (m *SubmissionManager) Status(
	ctx context.Context,
	user mdfcontext.Identity,
	sourceID string,
) (*model.Submission, error) {
	sub, err := m.get(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	if !sub.VisibleTo(user.UserID) && !m.cfg.IsCurator(user.UserID) {
		return nil, ErrForbidden
	}

	return sub, nil
}

// get resolves sourceID as a versioned id first and falls back to the
// latest version of a source name, which may itself end in _v<N>.
func (m *SubmissionManager) get(ctx context.Context, sourceID string) (*model.Submission, error) {
	if _, _, ok := model.SplitSourceID(sourceID); ok {
		sub, err := m.store.Get(ctx, sourceID)
		if err == nil {
			return sub, nil
		}

		if !errors.Is(err, repo.ErrNotFound) {
			return nil, errs.Wrap(ErrGetSubmission, err)
		}
	}

	history, err := m.store.ListBySourceName(ctx, sourceID)
	if err != nil {
		return nil, errs.Wrap(ErrGetSubmission, err)
	}

	latest := repo.Latest(history)
	if latest == nil {
		return nil, ErrNotFound
	}

	return latest, nil
}

// List returns the user's submissions, newest first.
func (m *SubmissionManager) List(ctx context.Context, user mdfcontext.Identity) ([]*model.Submission, error) {
	subs, err := m.store.ListByUser(ctx, user.UserID)
	if err != nil {
		return nil, errs.Wrap(ErrListSubmissions, err)
	}

	repo.SortNewestFirst(subs)

	return subs, nil
}

// Cancel stops an active submission on behalf of its submitter or a
// curator.
func (m *SubmissionManager) Cancel(
	ctx context.Context,
	user mdfcontext.Identity,
	sourceID string,
) (*model.Submission, error) {
	ctx = log.InjectSubmission(log.InjectUser(ctx, user.UserID), sourceID)

	sub, err := m.get(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	if !m.canManage(user, sub) {
		return nil, ErrForbidden
	}

	if !sub.Active {
		return nil, ErrNotActive
	}

	cancelled, err := m.transition(ctx, sub, workflow.TransitionCancel)
	if errors.Is(err, workflow.ErrTransitionExecution) {
		return nil, ErrNotActive
	}

	if err != nil {
		return nil, errs.Wrap(ErrCancelSubmission, err)
	}

	err = m.flows.Cancel(ctx, cancelled)
	if err != nil {
		log.Error(ctx, "failed to cancel flow run", err)
	}

	log.Info(ctx, "submission cancelled")

	return cancelled, nil
}

// Curate accepts or rejects a submission held for curation. Accepted
// submissions continue from the last recorded flow state.
func (m *SubmissionManager) Curate(
	ctx context.Context,
	curator mdfcontext.Identity,
	sourceID string,
	accept bool,
	reason string,
) (*model.Submission, error) {
	ctx = log.InjectSubmission(log.InjectUser(ctx, curator.UserID), sourceID)

	if !m.cfg.IsCurator(curator.UserID) {
		return nil, ErrForbidden
	}

	sub, err := m.get(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	if workflow.State(sub.State) != workflow.StateAwaitingCuration {
		return nil, ErrNotAwaitingCuration
	}

	t := workflow.TransitionReject
	if accept {
		t = workflow.TransitionAccept
	}

	curated, err := m.transition(ctx, sub, t, func(s *model.Submission) error {
		s.CuratedBy = curator.UserID
		s.SetMessage(status.StepCuration, reason)

		return nil
	})
	if errors.Is(err, workflow.ErrTransitionExecution) {
		return nil, ErrNotAwaitingCuration
	}

	if err != nil {
		return nil, errs.Wrap(ErrCurateSubmission, err)
	}

	log.Info(ctx, "submission curated", slog.String("transition", t.String()))

	if !accept {
		err = m.flows.Cancel(ctx, curated)
		if err != nil {
			log.Error(ctx, "failed to cancel flow run of rejected submission", err)
		}

		return curated, nil
	}

	err = m.flows.Resume(ctx, curated.SourceID)
	if err != nil {
		// The periodic sync folds the progress later.
		log.Error(ctx, "failed to resume curated submission", err)
		return curated, nil
	}

	resumed, err := m.store.Get(ctx, curated.SourceID)
	if err != nil {
		return curated, nil //nolint:nilerr
	}

	return resumed, nil
}
