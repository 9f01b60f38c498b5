// Package connectapi holds the request and response bodies of the
// /api/v1 HTTP API.
package connectapi

// DetailedError is the body of every error response.
type DetailedError struct {
	Code      string  `json:"code"`
	Message   string  `json:"message"`
	Status    int     `json:"status"`
	RequestID *string `json:"requestId,omitempty"`
}

type ErrorMessage struct {
	Error DetailedError `json:"error"`
}

type SubmitResponse struct {
	Success   bool   `json:"success"`
	SourceID  string `json:"source_id"`
	Version   int    `json:"version"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// StepStatus is one line of the human readable status.
type StepStatus struct {
	Step        string `json:"step"`
	Description string `json:"description"`
	Code        string `json:"code"`
	Text        string `json:"text"`
}

// Submission is the public view of a status record.
type Submission struct {
	SourceID       string       `json:"source_id"`
	SourceName     string       `json:"source_name"`
	Version        int          `json:"version"`
	Title          string       `json:"title"`
	Submitter      string       `json:"submitter"`
	State          string       `json:"state"`
	Active         bool         `json:"active"`
	Curation       bool         `json:"curation"`
	Test           bool         `json:"test"`
	StatusCode     string       `json:"status_code"`
	Status         []StepStatus `json:"status"`
	FlowStatus     string       `json:"flow_status,omitempty"`
	SubmissionTime string       `json:"submission_time"`
	Updated        string       `json:"updated"`
	Completed      *string      `json:"completed,omitempty"`
}

type StatusResponse struct {
	Success bool       `json:"success"`
	Status  Submission `json:"status"`
}

type ListResponse struct {
	Success     bool         `json:"success"`
	Submissions []Submission `json:"submissions"`
}

type CancelResponse struct {
	Success bool       `json:"success"`
	Status  Submission `json:"status"`
}

// CurationAction is the curator's decision.
type CurationAction string

const (
	CurationAccept CurationAction = "accept"
	CurationReject CurationAction = "reject"
)

type CurateRequest struct {
	Action CurationAction `json:"action"`
	Reason string         `json:"reason,omitempty"`
}

type FlowResponse struct {
	FlowID    string `json:"flow_id"`
	FlowScope string `json:"flow_scope"`
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle,omitempty"`
}
