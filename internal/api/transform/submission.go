package transform

import (
	"github.com/materials-data-facility/connect/internal/api/connectapi"
	"github.com/materials-data-facility/connect/internal/errs"
	"github.com/materials-data-facility/connect/internal/model"
)

// ToAPI renders a status record for the caller. Internal bookkeeping such
// as the ACL, request hash and flow run id stays server side.
func ToAPI(sub model.Submission) (*connectapi.Submission, error) {
	_, err := sub.Status()
	if err != nil {
		return nil, errs.Wrap(ErrAPIInvalidProperty, err)
	}

	steps := sub.Translate()
	status := make([]connectapi.StepStatus, len(steps))

	for i, step := range steps {
		status[i] = connectapi.StepStatus{
			Step:        step.Step,
			Description: step.Description,
			Code:        step.Code,
			Text:        step.Text,
		}
	}

	out := &connectapi.Submission{
		SourceID:       sub.SourceID,
		SourceName:     sub.SourceName,
		Version:        sub.Version,
		Title:          sub.Title,
		Submitter:      sub.Submitter,
		State:          sub.State,
		Active:         sub.Active,
		Curation:       sub.Curation,
		Test:           sub.Test,
		StatusCode:     sub.StatusCode,
		Status:         status,
		FlowStatus:     sub.FlowStatus,
		SubmissionTime: sub.SubmissionTime.UTC().Format(DefTimeFormat),
		Updated:        sub.Updated.UTC().Format(DefTimeFormat),
	}

	if sub.Completed != nil {
		completed := sub.Completed.UTC().Format(DefTimeFormat)
		out.Completed = &completed
	}

	return out, nil
}
