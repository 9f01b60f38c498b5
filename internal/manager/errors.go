package manager

import (
	"errors"
)

var (
	ErrSubmit              = errors.New("failed to submit dataset")
	ErrAlreadyExists       = errors.New("dataset already submitted, set update to submit a new version")
	ErrForbidden           = errors.New("user is not allowed to access this submission")
	ErrNotFound            = errors.New("submission not found")
	ErrNotActive           = errors.New("submission is not active")
	ErrNotAwaitingCuration = errors.New("submission is not awaiting curation")
	ErrNoFreeVersion       = errors.New("no free version number for dataset")
	ErrCancelPrevious      = errors.New("failed to cancel previous submission")
	ErrEnqueueStart        = errors.New("failed to enqueue submission start")
	ErrGetSubmission       = errors.New("failed to get submission")
	ErrListSubmissions     = errors.New("failed to list submissions")
	ErrCancelSubmission    = errors.New("failed to cancel submission")
	ErrCurateSubmission    = errors.New("failed to curate submission")
)
