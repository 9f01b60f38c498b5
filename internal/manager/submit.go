package manager

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"slices"

	"github.com/hibiken/asynq"

	"github.com/materials-data-facility/connect/internal/config"
	"github.com/materials-data-facility/connect/internal/errs"
	"github.com/materials-data-facility/connect/internal/log"
	"github.com/materials-data-facility/connect/internal/metrics"
	"github.com/materials-data-facility/connect/internal/model"
	"github.com/materials-data-facility/connect/internal/repo"
	"github.com/materials-data-facility/connect/internal/status"
	"github.com/materials-data-facility/connect/internal/workflow"
	asyncUtils "github.com/materials-data-facility/connect/utils/async"
	mdfcontext "github.com/materials-data-facility/connect/utils/context"
)

// Submit stores a new dataset version and queues its flow. Resubmitting
// identical content while the previous version is still active returns
// that version.
func (m *SubmissionManager) Submit(
	ctx context.Context,
	user mdfcontext.Identity,
	req *model.SubmissionRequest,
) (*SubmitResult, error) {
	res, err := m.submit(ctx, user, req)

	switch {
	case err == nil && res.Duplicate:
		m.metrics.Submission(metrics.OutcomeDuplicate)
	case err == nil:
		m.metrics.Submission(metrics.OutcomeAccepted)
	case errors.Is(err, model.ErrInvalidRequest), errors.Is(err, ErrAlreadyExists),
		errors.Is(err, ErrForbidden), errors.Is(err, model.ErrEmptySourceName):
		m.metrics.Submission(metrics.OutcomeRejected)
	default:
		m.metrics.Submission(metrics.OutcomeError)
	}

	return res, err
}

func (m *SubmissionManager) submit(
	ctx context.Context,
	user mdfcontext.Identity,
	req *model.SubmissionRequest,
) (*SubmitResult, error) {
	ctx = log.InjectUser(ctx, user.UserID)

	err := req.Validate()
	if err != nil {
		return nil, err
	}

	err = req.Sanitise()
	if err != nil {
		return nil, errs.Wrap(model.ErrInvalidRequest, err)
	}

	sourceName, err := req.SourceName()
	if err != nil {
		return nil, errs.Wrap(model.ErrInvalidRequest, err)
	}

	sources, err := model.ParseGlobusLocations(req.DataSources)
	if err != nil {
		return nil, errs.Wrap(model.ErrInvalidRequest, err)
	}

	hash, err := req.Hash()
	if err != nil {
		return nil, errs.Wrap(ErrSubmit, err)
	}

	original, err := json.Marshal(req)
	if err != nil {
		return nil, errs.Wrap(ErrSubmit, err)
	}

	for range maxVersionAttempts {
		history, err := m.store.ListBySourceName(ctx, sourceName)
		if err != nil {
			return nil, errs.Wrap(ErrSubmit, err)
		}

		latest := repo.Latest(history)

		if latest != nil {
			if !req.Update {
				return nil, ErrAlreadyExists
			}

			if latest.UserID != user.UserID {
				return nil, ErrForbidden
			}

			if latest.RequestHash == hash && latest.Active {
				log.Info(ctx, "returning identical active submission",
					slog.String("sourceId", latest.SourceID))

				return &SubmitResult{SourceID: latest.SourceID, Version: latest.Version, Duplicate: true}, nil
			}
		}

		version := 1
		if latest != nil {
			version = latest.Version + 1
		}

		sub, err := m.newSubmission(user, req, sourceName, version, sources, hash, string(original))
		if err != nil {
			return nil, errs.Wrap(ErrSubmit, err)
		}

		err = m.store.Create(ctx, sub)
		if errors.Is(err, repo.ErrAlreadyExists) {
			log.Warn(ctx, "version taken by a concurrent submission, retrying",
				slog.String("sourceId", sub.SourceID))

			continue
		}

		if err != nil {
			return nil, errs.Wrap(ErrSubmit, err)
		}

		ctx = log.InjectSubmission(ctx, sub.SourceID)

		sub, err = m.replacePrevious(ctx, sub, latest)
		if err != nil {
			return nil, err
		}

		log.Info(ctx, "submission created", slog.Int("version", sub.Version))

		m.notify(ctx, nil, sub)
		m.enqueueStart(ctx, sub.SourceID)

		return &SubmitResult{SourceID: sub.SourceID, Version: sub.Version}, nil
	}

	return nil, errs.Wrap(ErrSubmit, ErrNoFreeVersion)
}

// replacePrevious cancels the version sub replaces and records the outcome
// in the old_cancel step. sub is removed again when that fails.
func (m *SubmissionManager) replacePrevious(
	ctx context.Context,
	sub, latest *model.Submission,
) (*model.Submission, error) {
	cancelled, err := m.cancelPrevious(ctx, latest)
	if err != nil {
		m.discard(ctx, sub.SourceID)
		return nil, err
	}

	oldCancel := status.CodeNotRequested
	if cancelled {
		oldCancel = status.CodeSuccess
	}

	updated, err := m.store.Update(ctx, sub.SourceID, func(s *model.Submission) error {
		code, err := s.Status()
		if err != nil {
			return err
		}

		code, err = code.Set(status.StepOldCancel, oldCancel)
		if err != nil {
			return err
		}

		s.StatusCode = code.String()

		return nil
	})
	if err != nil {
		m.discard(ctx, sub.SourceID)
		return nil, errs.Wrap(ErrSubmit, err)
	}

	return updated, nil
}

func (m *SubmissionManager) discard(ctx context.Context, sourceID string) {
	err := m.store.Delete(ctx, sourceID)
	if err != nil {
		log.Error(ctx, "failed to remove unfinished submission", err)
	}
}

// cancelPrevious stops the latest version if it is still running. It
// reports whether anything was cancelled.
func (m *SubmissionManager) cancelPrevious(ctx context.Context, latest *model.Submission) (bool, error) {
	if latest == nil || !latest.Active {
		return false, nil
	}

	cancelled, err := m.transition(ctx, latest, workflow.TransitionCancel)
	if errors.Is(err, workflow.ErrTransitionExecution) {
		// Finished between listing and cancelling.
		return false, nil
	}

	if err != nil {
		return false, errs.Wrap(ErrCancelPrevious, err)
	}

	err = m.flows.Cancel(ctx, cancelled)
	if err != nil {
		log.Error(ctx, "failed to cancel flow run of previous submission", err,
			slog.String("previous", cancelled.SourceID))
	}

	return true, nil
}

func (m *SubmissionManager) newSubmission(
	user mdfcontext.Identity,
	req *model.SubmissionRequest,
	sourceName string,
	version int,
	sources []model.GlobusLocation,
	hash string,
	original string,
) (*model.Submission, error) {
	code, err := status.NewStatusCode().Set(status.StepSubStart, status.CodeSuccess)
	if err != nil {
		return nil, err
	}

	sourceID := model.SourceID(sourceName, version)
	now := m.now().UTC()

	return &model.Submission{
		SourceID:           sourceID,
		SourceName:         sourceName,
		Version:            version,
		Title:              req.Title(),
		Submitter:          user.Name,
		UserID:             user.UserID,
		UserEmail:          user.Email,
		ACL:                req.ACL,
		Test:               req.Test,
		Curation:           req.Curation,
		OriginalSubmission: original,
		RequestHash:        hash,
		StatusCode:         code.String(),
		State:              workflow.StatePending.String(),
		Active:             true,
		DataSources:        sources,
		Destination:        destination(m.cfg.Destination, req.Test).Join(sourceID),
		Services:           slices.Sorted(maps.Keys(req.Services)),
		SubmissionTime:     now,
		Updated:            now,
	}, nil
}

func destination(cfg config.Destination, test bool) model.GlobusLocation {
	base := cfg.BasePath
	if test && cfg.TestPath != "" {
		base = cfg.TestPath
	}

	return model.GlobusLocation{EndpointID: cfg.EndpointID, Path: base}
}

// enqueueStart queues the flow start. A failed enqueue leaves the record
// pending, the periodic flow sync starts it later.
func (m *SubmissionManager) enqueueStart(ctx context.Context, sourceID string) {
	if m.asyncClient == nil {
		log.Warn(ctx, "async client is not initialized, skipping submission start task enqueue")
		return
	}

	payload := asyncUtils.NewTaskPayload(ctx, sourceID)

	data, err := payload.ToBytes()
	if err != nil {
		log.Error(ctx, "failed to build submission start task", err)
		return
	}

	task := asynq.NewTask(config.TypeSubmissionStart, data)

	info, err := m.asyncClient.EnqueueContext(ctx, task,
		asynq.TaskID(asyncUtils.TaskID(config.TypeSubmissionStart, sourceID)))
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return
		}

		log.Error(ctx, "failed to enqueue submission start task", errs.Wrap(ErrEnqueueStart, err))

		return
	}

	log.Info(ctx, "Enqueued submission start task", slog.String("task_id", info.ID))
}
