package async

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/materials-data-facility/connect/internal/errs"
	mdfcontext "github.com/materials-data-facility/connect/utils/context"
)

var (
	ErrParsingPayload  = errors.New("could not parse task payload")
	ErrMissingSourceID = errors.New("task payload has no source id")
)

// TaskPayload is the body of per-submission tasks. The request id links
// the worker's logs to the API call that enqueued the task.
type TaskPayload struct {
	SourceID  string `json:"source_id"`
	RequestID string `json:"request_id,omitempty"`
}

func NewTaskPayload(ctx context.Context, sourceID string) TaskPayload {
	requestID, err := mdfcontext.GetRequestID(ctx)
	if err != nil {
		requestID = ""
	}

	return TaskPayload{
		SourceID:  sourceID,
		RequestID: requestID,
	}
}

func ParseTaskPayload(payload []byte) (TaskPayload, error) {
	var p TaskPayload

	err := json.Unmarshal(payload, &p)
	if err != nil {
		return TaskPayload{}, errs.Wrap(ErrParsingPayload, err)
	}

	if p.SourceID == "" {
		return TaskPayload{}, ErrMissingSourceID
	}

	return p, nil
}

func (p *TaskPayload) InjectContext(ctx context.Context) context.Context {
	if p.RequestID != "" {
		ctx = mdfcontext.WithRequestID(ctx, p.RequestID)
	}

	return ctx
}

func (p *TaskPayload) ToBytes() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, errs.Wrap(ErrParsingPayload, err)
	}

	return data, nil
}

// TaskID makes the asynq task id for a submission task, so a task is
// queued at most once per submission.
func TaskID(taskType, sourceID string) string {
	return taskType + ":" + sourceID
}
