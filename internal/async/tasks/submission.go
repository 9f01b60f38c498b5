package tasks

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/materials-data-facility/connect/internal/config"
	"github.com/materials-data-facility/connect/internal/errs"
	"github.com/materials-data-facility/connect/internal/log"
	asyncUtils "github.com/materials-data-facility/connect/utils/async"
)

type FlowStarter interface {
	Start(ctx context.Context, sourceID string) error
}

type FlowSyncer interface {
	Sync(ctx context.Context, sourceID string) error
}

// SubmissionStarter runs the flow of a newly created submission.
type SubmissionStarter struct {
	starter FlowStarter
}

func NewSubmissionStarter(starter FlowStarter) *SubmissionStarter {
	return &SubmissionStarter{starter: starter}
}

func (s *SubmissionStarter) ProcessTask(ctx context.Context, task *asynq.Task) error {
	ctx, sourceID, err := parse(ctx, task)
	if err != nil {
		return err
	}

	err = s.starter.Start(ctx, sourceID)
	if err != nil {
		log.Error(ctx, "Running Submission Start Task", err)
		return errs.Wrap(ErrRunningTask, err)
	}

	return nil
}

func (s *SubmissionStarter) TaskType() string {
	return config.TypeSubmissionStart
}

// SubmissionSyncer refreshes one submission from its flow run.
type SubmissionSyncer struct {
	syncer FlowSyncer
}

func NewSubmissionSyncer(syncer FlowSyncer) *SubmissionSyncer {
	return &SubmissionSyncer{syncer: syncer}
}

func (s *SubmissionSyncer) ProcessTask(ctx context.Context, task *asynq.Task) error {
	ctx, sourceID, err := parse(ctx, task)
	if err != nil {
		return err
	}

	err = s.syncer.Sync(ctx, sourceID)
	if err != nil {
		log.Error(ctx, "Running Submission Sync Task", err)
		return errs.Wrap(ErrRunningTask, err)
	}

	return nil
}

func (s *SubmissionSyncer) TaskType() string {
	return config.TypeSubmissionSync
}

// parse reads the payload of a per-submission task. Malformed payloads are
// not retried.
func parse(ctx context.Context, task *asynq.Task) (context.Context, string, error) {
	if task == nil {
		return ctx, "", fmt.Errorf("%w: %w", asyncUtils.ErrParsingPayload, asynq.SkipRetry)
	}

	payload, err := asyncUtils.ParseTaskPayload(task.Payload())
	if err != nil {
		log.Error(ctx, "Invalid submission task payload", err)
		return ctx, "", fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	ctx = log.InjectSubmission(payload.InjectContext(ctx), payload.SourceID)

	return ctx, payload.SourceID, nil
}
