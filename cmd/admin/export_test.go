package admin

import (
	"time"

	"github.com/hibiken/asynq"
)

type MockInspector struct{}

func (m *MockInspector) Queues() ([]string, error) {
	return []string{"default", "critical"}, nil
}

func (m *MockInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return &asynq.QueueInfo{Queue: queue, Size: 42}, nil
}

func (m *MockInspector) History(string, int) ([]*asynq.DailyStats, error) {
	return []*asynq.DailyStats{
		{Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Processed: 10, Failed: 2},
	}, nil
}

func (m *MockInspector) ListPendingTasks(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return []*asynq.TaskInfo{{ID: "submission:start:copper_v1", Type: "submission:start"}}, nil
}

func (m *MockInspector) ListActiveTasks(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return []*asynq.TaskInfo{{ID: "task-active", Type: "flow:sync"}}, nil
}

func (m *MockInspector) ListArchivedTasks(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return nil, nil
}
