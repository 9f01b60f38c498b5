package async

import (
	"context"
	"sync"

	"github.com/hibiken/asynq"
)

// MockClient implements the Client interface for testing
type MockClient struct {
	mu sync.Mutex

	CallCount int
	LastTask  *asynq.Task
	Tasks     []*asynq.Task
	Error     error
}

var _ Client = (*MockClient)(nil)

func (m *MockClient) Close() error {
	return nil
}

func (m *MockClient) Enqueue(task *asynq.Task, opt ...asynq.Option) (*asynq.TaskInfo, error) {
	return m.enqueue(task, opt)
}

func (m *MockClient) EnqueueContext(_ context.Context, task *asynq.Task, opt ...asynq.Option) (*asynq.TaskInfo, error) {
	return m.enqueue(task, opt)
}

func (m *MockClient) Ping() error {
	return nil
}

func (m *MockClient) enqueue(task *asynq.Task, _ []asynq.Option) (*asynq.TaskInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCount++

	m.LastTask = task
	if m.Error != nil {
		return nil, m.Error
	}

	m.Tasks = append(m.Tasks, task)

	return &asynq.TaskInfo{ID: "mock-task-id", Type: task.Type()}, nil
}
