package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/materials-data-facility/connect/internal/config"
	"github.com/materials-data-facility/connect/internal/errs"
	"github.com/materials-data-facility/connect/internal/flow"
	"github.com/materials-data-facility/connect/internal/log"
	"github.com/materials-data-facility/connect/internal/metrics"
	"github.com/materials-data-facility/connect/internal/model"
	"github.com/materials-data-facility/connect/internal/repo"
	"github.com/materials-data-facility/connect/internal/workflow"
)

// startGrace leaves new submissions to their own start task before the
// sync starts them.
const startGrace = 2 * time.Minute

type FlowUpdater interface {
	FlowStarter
	FlowSyncer
}

var _ FlowUpdater = (*flow.AutomateManager)(nil)

// FlowSync walks every active submission, starting the ones still waiting
// for a run and folding run progress into the others.
type FlowSync struct {
	flows   FlowUpdater
	store   repo.StatusStore
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewFlowSync(flows FlowUpdater, store repo.StatusStore, m *metrics.Metrics) *FlowSync {
	return &FlowSync{
		flows:   flows,
		store:   store,
		metrics: m,
		now:     time.Now,
	}
}

func (f *FlowSync) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	total, failed := 0, 0

	err := f.store.ProcessActive(ctx, func(subs []*model.Submission) error {
		total += len(subs)
		log.Debug(ctx, "Processing batch of submissions for flow sync",
			slog.Int("batchSize", len(subs)), slog.Int("total", total))

		for _, sub := range subs {
			subCtx := log.InjectSubmission(ctx, sub.SourceID)

			err := f.syncOne(subCtx, sub)
			if err != nil {
				failed++

				log.Error(subCtx, "Running Flow Sync for submission", err)
			}
		}

		return nil
	})
	if err != nil {
		log.Error(ctx, "Listing active submissions on Flow Sync Task", err)
		return errs.Wrap(ErrRunningTask, err)
	}

	f.metrics.SetActive(total)

	log.Info(ctx, "Flow Sync Task completed",
		slog.Int("totalSubmissionCount", total), slog.Int("failedSubmissionCount", failed))

	return nil
}

func (f *FlowSync) syncOne(ctx context.Context, sub *model.Submission) error {
	if sub.FlowRunID == "" && workflow.State(sub.State) == workflow.StatePending {
		if f.now().Sub(sub.SubmissionTime) < startGrace {
			return nil
		}

		return f.flows.Start(ctx, sub.SourceID)
	}

	return f.flows.Sync(ctx, sub.SourceID)
}

func (f *FlowSync) TaskType() string {
	return config.TypeFlowSync
}
