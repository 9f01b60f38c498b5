package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrTransitionExecution    = errors.New("failed to execute transition")
	ErrUpdateSubmissionState  = errors.New("failed to update submission state")
	ErrInvalidSubmissionState = errors.New("invalid submission state")
	ErrStatusSideEffect       = errors.New("failed to apply status change")
)

// NewTransitionError creates an error when a transition fails.
func NewTransitionError(transition Transition) error {
	return fmt.Errorf("%w %s", ErrTransitionExecution, transition)
}
