package admin

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/materials-data-facility/connect/internal/async"
	"github.com/materials-data-facility/connect/internal/config"
	asyncUtils "github.com/materials-data-facility/connect/utils/async"
)

const (
	pageSize    = 10
	historyDays = 7
)

type Inspector interface {
	Queues() ([]string, error)
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	History(queue string, days int) ([]*asynq.DailyStats, error)
	ListPendingTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	ListActiveTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	ListArchivedTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
}

var _ Inspector = (*asynq.Inspector)(nil)

type (
	InspectorFunc func() (Inspector, error)
	ClientFunc    func() (async.Client, error)
)

func NewTasksCmd(inspector InspectorFunc, client ClientFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect and invoke asynchronous tasks",
	}

	cmd.AddCommand(
		NewQueuesCmd(inspector),
		NewStatsCmd(inspector),
		NewInvokeCmd(client),
	)

	return cmd
}

func NewQueuesCmd(inspector InspectorFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "queues",
		Short: "List queues",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := inspector()
			if err != nil {
				return err
			}

			queues, err := in.Queues()
			if err != nil {
				cmd.PrintErrf("Failed to list queues: %v\n", err)
				return err
			}

			cmd.Print("List of asynq queues:\n")

			for _, q := range queues {
				cmd.Printf("- %s\n", q)
			}

			return nil
		},
	}
}

//nolint:cyclop
func NewStatsCmd(inspector InspectorFunc) *cobra.Command {
	var (
		queue                                  string
		queueInfo, weeklyHistory, pendingTasks bool
		activeTasks, archivedTasks             bool
		page                                   int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show task queue statistics",
		Long: "Show task queue statistics for one queue.\n" +
			"Task listings are paginated with a page size of 10, use --page to move through them.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := inspector()
			if err != nil {
				return err
			}

			listOpts := []asynq.ListOption{asynq.PageSize(pageSize), asynq.Page(page)}

			var stats any

			switch {
			case queueInfo:
				stats, err = in.GetQueueInfo(queue)
			case weeklyHistory:
				stats, err = in.History(queue, historyDays)
			case pendingTasks:
				stats, err = in.ListPendingTasks(queue, listOpts...)
			case activeTasks:
				stats, err = in.ListActiveTasks(queue, listOpts...)
			case archivedTasks:
				stats, err = in.ListArchivedTasks(queue, listOpts...)
			}

			if err != nil {
				cmd.PrintErrf("Failed to get queue statistics: %v\n", err)
				return err
			}

			return printJSON(cmd, stats)
		},
	}

	cmd.Flags().StringVar(&queue, "queue", "default", "Queue name")
	cmd.Flags().BoolVar(&queueInfo, "queue-info", false, "Show queue info")
	cmd.Flags().BoolVar(&weeklyHistory, "weekly-history", false, "Show weekly history")
	cmd.Flags().BoolVar(&pendingTasks, "pending-tasks", false, "Show pending tasks")
	cmd.Flags().BoolVar(&activeTasks, "active-tasks", false, "Show active tasks")
	cmd.Flags().BoolVar(&archivedTasks, "archived-tasks", false, "Show archived tasks")
	cmd.Flags().IntVar(&page, "page", 1, "Page number for paginated results")
	cmd.MarkFlagsMutuallyExclusive(
		"queue-info", "weekly-history", "pending-tasks", "active-tasks", "archived-tasks")
	cmd.MarkFlagsOneRequired(
		"queue-info", "weekly-history", "pending-tasks", "active-tasks", "archived-tasks")

	return cmd
}

// NewInvokeCmd enqueues a task immediately. Per-submission tasks need
// --source-id.
func NewInvokeCmd(client ClientFunc) *cobra.Command {
	var taskName, sourceID string

	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Invoke a task",
		Long: "Invoke a task immediately by providing its task name.\n" +
			"For example: admin tasks invoke --task submission:sync --source-id <source_id>",
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := taskPayload(taskName, sourceID)
			if err != nil {
				cmd.PrintErrf("%v\n", err)
				return err
			}

			c, err := client()
			if err != nil {
				return err
			}

			info, err := c.EnqueueContext(cmd.Context(), asynq.NewTask(taskName, payload))
			if err != nil {
				cmd.PrintErrf("Failed to enqueue task: %v\n", err)
				return err
			}

			cmd.Printf("Task %s enqueued with ID: %s\n", taskName, info.ID)

			return nil
		},
	}

	cmd.Flags().StringVar(&taskName, "task", "", "Task name to invoke")
	cmd.Flags().StringVar(&sourceID, "source-id", "", "Submission source id")

	err := cmd.MarkFlagRequired("task")
	if err != nil {
		cmd.PrintErrf("failed to mark flag 'task' as required: %v\n", err)
	}

	return cmd
}

func taskPayload(taskName, sourceID string) ([]byte, error) {
	switch taskName {
	case config.TypeFlowSync:
		return nil, nil
	case config.TypeSubmissionStart, config.TypeSubmissionSync:
		if sourceID == "" {
			return nil, asyncUtils.ErrMissingSourceID
		}

		payload := asyncUtils.TaskPayload{SourceID: sourceID}

		return payload.ToBytes()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, taskName)
	}
}
