package flow

import (
	"fmt"

	"github.com/materials-data-facility/connect/internal/clients/globus"
	"github.com/materials-data-facility/connect/internal/model"
	"github.com/materials-data-facility/connect/internal/status"
	"github.com/materials-data-facility/connect/internal/workflow"
)

type stepProgress int

const (
	progressNone stepProgress = iota
	progressActive
	progressDone
	progressFailed
)

// Record copies the remote run status and the per-state outcome found in
// the run log onto the submission.
func Record(sub *model.Submission, rs *RunStatus) {
	if rs == nil || rs.Run == nil {
		return
	}

	sub.FlowStatus = rs.Run.Status

	if sub.FlowStates == nil {
		sub.FlowStates = make(map[string]string)
	}

	for _, entry := range rs.Log {
		name := entry.StateName()

		switch entry.Code {
		case globus.LogActionStarted:
			if name != "" && sub.FlowStates[name] == "" {
				sub.FlowStates[name] = globus.RunStatusActive
			}
		case globus.LogActionCompleted, globus.LogPassCompleted, globus.LogChoiceCompleted:
			if name != "" {
				sub.FlowStates[name] = globus.RunStatusSucceeded
			}
		case globus.LogActionFailed:
			if name != "" {
				sub.FlowStates[name] = globus.RunStatusFailed
			}

			if sub.FlowError == "" {
				sub.FlowError = entry.Description
			}
		case globus.LogFailed, globus.LogFlowFailed:
			if sub.FlowError == "" {
				sub.FlowError = entry.Description
			}
		}
	}

	if len(sub.FlowStates) == 0 {
		sub.FlowStates = nil
	}
}

// Fold advances the status code from the recorded flow progress. Steps
// are visited in order and folding stops at the first step that is not
// done. The returned transition, if any, should be applied by the caller.
func Fold(sub *model.Submission) (workflow.Transition, error) {
	code, err := sub.Status()
	if err != nil {
		return "", err
	}

	var transition workflow.Transition

	runFailed := sub.FlowStatus == globus.RunStatusFailed

steps:
	for i, step := range status.Steps {
		current := code.At(i)
		if current.Terminal() {
			if current.Done() {
				continue
			}

			break
		}

		states := StatesFor(step.Name)
		if len(states) == 0 {
			if step.Name == status.StepCuration && sub.Curation {
				transition = workflow.TransitionHold
				break
			}

			code, err = code.Set(step.Name, status.CodeNotRequested)
			if err != nil {
				return "", err
			}

			continue
		}

		switch progressOf(states, sub) {
		case progressFailed:
			code, err = failStep(sub, code, step, states)
			if err != nil {
				return "", err
			}

			transition = workflow.TransitionFail

			break steps
		case progressDone:
			code, err = code.Set(step.Name, status.CodeSuccess)
			if err != nil {
				return "", err
			}
		case progressActive:
			code, err = code.Set(step.Name, status.CodeInProgress)
			if err != nil {
				return "", err
			}

			break steps
		case progressNone:
			break steps
		}
	}

	switch {
	case transition == workflow.TransitionFail:
	case runFailed:
		if step, ok := code.Current(); ok {
			code, err = failStep(sub, code, step, StatesFor(step.Name))
			if err != nil {
				return "", err
			}
		}

		transition = workflow.TransitionFail
	case sub.FlowStatus == globus.RunStatusEnded:
		transition = workflow.TransitionCancel
	case transition == "" && sub.FlowStatus == globus.RunStatusSucceeded && code.Complete() && !code.Failed():
		transition = workflow.TransitionSucceed
	}

	sub.StatusCode = code.String()

	return transition, nil
}

func failStep(
	sub *model.Submission,
	code status.StatusCode,
	step status.Step,
	states []string,
) (status.StatusCode, error) {
	msg := sub.FlowError
	if msg == "" {
		for _, name := range states {
			if sub.FlowStates[name] == globus.RunStatusFailed {
				msg = fmt.Sprintf("flow state %s failed", name)
				break
			}
		}
	}

	if msg == "" {
		msg = "the flow run failed"
	}

	sub.SetMessage(step.Name, msg)

	return code.Fail(step.Name)
}

func progressOf(states []string, sub *model.Submission) stepProgress {
	if sub.FlowStatus == globus.RunStatusSucceeded {
		return progressDone
	}

	started := false

	for _, name := range states {
		switch sub.FlowStates[name] {
		case globus.RunStatusFailed:
			return progressFailed
		case globus.RunStatusActive, globus.RunStatusSucceeded:
			started = true
		}
	}

	if sub.FlowStates[states[len(states)-1]] == globus.RunStatusSucceeded {
		return progressDone
	}

	if started {
		return progressActive
	}

	return progressNone
}
