package model

import (
	"slices"
	"time"

	"github.com/materials-data-facility/connect/internal/constants"
	"github.com/materials-data-facility/connect/internal/status"
)

// Submission is the status record of one dataset version.
type Submission struct {
	SourceID           string            `json:"source_id" dynamodbav:"source_id"`
	SourceName         string            `json:"source_name" dynamodbav:"source_name"`
	Version            int               `json:"version" dynamodbav:"version"`
	Title              string            `json:"title" dynamodbav:"title"`
	Submitter          string            `json:"submitter" dynamodbav:"submitter"`
	UserID             string            `json:"user_id" dynamodbav:"user_id"`
	UserEmail          string            `json:"user_email" dynamodbav:"user_email"`
	ACL                []string          `json:"acl" dynamodbav:"acl,omitempty"`
	Test               bool              `json:"test" dynamodbav:"test"`
	Curation           bool              `json:"curation" dynamodbav:"curation"`
	OriginalSubmission string            `json:"original_submission" dynamodbav:"original_submission"`
	RequestHash        string            `json:"request_hash" dynamodbav:"request_hash"`
	StatusCode         string            `json:"status_code" dynamodbav:"status_code"`
	Messages           map[string]string `json:"messages,omitempty" dynamodbav:"messages,omitempty"`
	State              string            `json:"state" dynamodbav:"state"`
	Active             bool              `json:"active" dynamodbav:"active"`
	Cancelled          bool              `json:"cancelled" dynamodbav:"cancelled"`
	DataSources        []GlobusLocation  `json:"data_sources" dynamodbav:"data_sources"`
	Destination        GlobusLocation    `json:"destination" dynamodbav:"destination"`
	Services           []string          `json:"services,omitempty" dynamodbav:"services,omitempty"`
	FlowRunID          string            `json:"flow_run_id,omitempty" dynamodbav:"flow_run_id,omitempty"`
	FlowStatus         string            `json:"flow_status,omitempty" dynamodbav:"flow_status,omitempty"`
	FlowStates         map[string]string `json:"flow_states,omitempty" dynamodbav:"flow_states,omitempty"`
	FlowError          string            `json:"flow_error,omitempty" dynamodbav:"flow_error,omitempty"`
	CuratedBy          string            `json:"curated_by,omitempty" dynamodbav:"curated_by,omitempty"`
	SubmissionTime     time.Time         `json:"submission_time" dynamodbav:"submission_time"`
	Updated            time.Time         `json:"updated" dynamodbav:"updated"`
	Completed          *time.Time        `json:"completed,omitempty" dynamodbav:"completed,omitempty"`
	Revision           int64             `json:"revision" dynamodbav:"revision"`
}

// Status returns the parsed status code.
func (s *Submission) Status() (status.StatusCode, error) {
	return status.Parse(s.StatusCode)
}

// SetMessage records the text shown next to a step.
func (s *Submission) SetMessage(step, text string) {
	if text == "" {
		return
	}

	if s.Messages == nil {
		s.Messages = make(map[string]string)
	}

	s.Messages[step] = text
}

// Translate renders the status code for humans.
func (s *Submission) Translate() []status.StepStatus {
	return status.Translate(status.StatusCode(s.StatusCode), s.Messages)
}

// VisibleTo reports whether the user may read the record.
func (s *Submission) VisibleTo(userID string) bool {
	if s.UserID == userID {
		return true
	}

	return slices.Contains(s.ACL, constants.PublicACL) || slices.Contains(s.ACL, userID)
}
