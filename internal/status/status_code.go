package status

import (
	"fmt"
	"strings"

	"github.com/materials-data-facility/connect/internal/errs"
)

// StatusCode holds one Code per step, in Steps order.
type StatusCode string

// NewStatusCode returns a status code with every step not started.
func NewStatusCode() StatusCode {
	return StatusCode(strings.Repeat(string(CodeNotStarted), len(Steps)))
}

// Parse validates a stored status code.
func Parse(raw string) (StatusCode, error) {
	if len(raw) != len(Steps) {
		return "", errs.Wrapf(ErrMalformedStatus,
			fmt.Sprintf("length %d, want %d", len(raw), len(Steps)))
	}

	for i := range len(raw) {
		if !Code(raw[i]).Valid() {
			return "", errs.Wrapf(ErrInvalidCode, fmt.Sprintf("%q at step %s", raw[i], Steps[i].Name))
		}
	}

	return StatusCode(raw), nil
}

func (s StatusCode) String() string {
	return string(s)
}

// Code returns the code of the named step.
func (s StatusCode) Code(step string) (Code, error) {
	i, err := StepIndex(step)
	if err != nil {
		return 0, err
	}

	return Code(s[i]), nil
}

// At returns the code at index i.
func (s StatusCode) At(i int) Code {
	return Code(s[i])
}

// Set moves a step to code. Any code other than not-started and cancelled
// requires every earlier step to be done. Terminal steps are immutable;
// setting the code a step already holds is a no-op.
func (s StatusCode) Set(step string, code Code) (StatusCode, error) {
	if !code.Valid() {
		return s, errs.Wrapf(ErrInvalidCode, code.String())
	}

	i, err := StepIndex(step)
	if err != nil {
		return s, err
	}

	current := Code(s[i])
	if current == code {
		return s, nil
	}

	if current.Terminal() {
		return s, newStepTerminalError(step, current)
	}

	if code != CodeNotStarted && code != CodeCancelled {
		for j := range i {
			if !Code(s[j]).Done() {
				return s, newStepOrderError(step, Steps[j].Name)
			}
		}
	}

	return s.replace(i, code), nil
}

// Fail marks step as failed and cancels everything after it that has not
// finished.
func (s StatusCode) Fail(step string) (StatusCode, error) {
	i, err := StepIndex(step)
	if err != nil {
		return s, err
	}

	if Code(s[i]).Terminal() {
		return s, newStepTerminalError(step, Code(s[i]))
	}

	out := s.replace(i, CodeFailed)
	for j := i + 1; j < len(out); j++ {
		if !Code(out[j]).Terminal() {
			out = out.replace(j, CodeCancelled)
		}
	}

	return out, nil
}

// Cancel marks every unfinished step cancelled.
func (s StatusCode) Cancel() StatusCode {
	out := s
	for i := range len(out) {
		if !Code(out[i]).Terminal() {
			out = out.replace(i, CodeCancelled)
		}
	}

	return out
}

// Complete reports whether no further progress can happen.
func (s StatusCode) Complete() bool {
	allTerminal := true

	for i := range len(s) {
		c := Code(s[i])
		if c == CodeFailed || c == CodeCancelled {
			return true
		}

		if !c.Terminal() {
			allTerminal = false
		}
	}

	return allTerminal
}

// Failed reports whether any step failed.
func (s StatusCode) Failed() bool {
	return strings.ContainsRune(string(s), rune(CodeFailed))
}

// Current returns the first step that has not reached a terminal code.
func (s StatusCode) Current() (Step, bool) {
	for i := range len(s) {
		if !Code(s[i]).Terminal() {
			return Steps[i], true
		}
	}

	return Step{}, false
}

func (s StatusCode) replace(i int, code Code) StatusCode {
	b := []byte(s)
	b[i] = byte(code)

	return StatusCode(b)
}
