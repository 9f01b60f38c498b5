package status

import (
	"errors"
	"fmt"

	"github.com/materials-data-facility/connect/internal/errs"
)

var (
	ErrUnknownStep     = errors.New("unknown status step")
	ErrInvalidCode     = errors.New("invalid status code")
	ErrStepOrder       = errors.New("earlier steps are not finished")
	ErrStepTerminal    = errors.New("step already finished")
	ErrMalformedStatus = errors.New("malformed status code")
)

func NewUnknownStepError(name string) error {
	return errs.Wrapf(ErrUnknownStep, name)
}

func newStepOrderError(step string, blocking string) error {
	return errs.Wrapf(ErrStepOrder, fmt.Sprintf("%s waits on %s", step, blocking))
}

func newStepTerminalError(step string, code Code) error {
	return errs.Wrapf(ErrStepTerminal, fmt.Sprintf("%s is %s", step, code))
}
