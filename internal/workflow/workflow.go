package workflow

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/looplab/fsm"

	"github.com/materials-data-facility/connect/internal/errs"
	"github.com/materials-data-facility/connect/internal/log"
	"github.com/materials-data-facility/connect/internal/model"
	"github.com/materials-data-facility/connect/internal/repo"
	"github.com/materials-data-facility/connect/internal/status"
)

// Lifecycle drives a stored submission through its states. Every
// transition is applied to a freshly read record so concurrent writers
// never lose each other's changes.
type Lifecycle struct {
	Submission *model.Submission
	Repository repo.StatusStore
	now        func() time.Time
}

// convertEvent converts Transition and State types to string
// and creates an EventDesc object for the state machine.
func convertEvent(
	transition Transition,
	sourceStates []State,
	destinationState State,
) fsm.EventDesc {
	src := make([]string, len(sourceStates))
	for i, state := range sourceStates {
		src[i] = state.String()
	}

	return fsm.EventDesc{
		Name: transition.String(),
		Src:  src,
		Dst:  destinationState.String(),
	}
}

// NewStateMachine creates the submission state machine starting in state.
func NewStateMachine(state State) *fsm.FSM {
	return fsm.NewFSM(
		state.String(),
		fsm.Events{
			convertEvent(
				TransitionStart,
				[]State{StatePending},
				StateInProgress,
			),
			convertEvent(
				TransitionHold,
				[]State{StateInProgress},
				StateAwaitingCuration,
			),
			convertEvent(
				TransitionAccept,
				[]State{StateAwaitingCuration},
				StateInProgress,
			),
			convertEvent(
				TransitionReject,
				[]State{StateAwaitingCuration},
				StateFailed,
			),
			convertEvent(
				TransitionSucceed,
				[]State{StateInProgress},
				StateSucceeded,
			),
			convertEvent(
				TransitionFail,
				[]State{StatePending, StateInProgress},
				StateFailed,
			),
			convertEvent(
				TransitionCancel,
				[]State{StatePending, StateInProgress, StateAwaitingCuration},
				StateCancelled,
			),
		},
		fsm.Callbacks{},
	)
}

// NewLifecycle creates a new Lifecycle for the given submission.
func NewLifecycle(submission *model.Submission, repository repo.StatusStore) *Lifecycle {
	return &Lifecycle{
		Submission: submission,
		Repository: repository,
		now:        time.Now,
	}
}

// CanTransition checks the transition against the last known state.
func (l *Lifecycle) CanTransition(transition Transition) bool {
	return NewStateMachine(State(l.Submission.State)).Can(transition.String())
}

// AvailableTransitions lists the transitions allowed from the last known state.
func (l *Lifecycle) AvailableTransitions() []Transition {
	available := NewStateMachine(State(l.Submission.State)).AvailableTransitions()

	out := make([]Transition, 0, len(available))
	for _, t := range available {
		out = append(out, Transition(t))
	}

	slices.Sort(out)

	return out
}

// ApplyTransition runs transition against the stored record and persists
// the result. extra mutations are applied in the same write, after the
// transition side effects.
func (l *Lifecycle) ApplyTransition(
	ctx context.Context,
	transition Transition,
	extra ...repo.MutateFunc,
) error {
	updated, err := l.Repository.Update(ctx, l.Submission.SourceID, func(sub *model.Submission) error {
		err := Apply(ctx, sub, transition, l.now().UTC())
		if err != nil {
			return err
		}

		for _, mutate := range extra {
			err = mutate(sub)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrTransitionExecution) || errors.Is(err, ErrStatusSideEffect) {
			return err
		}

		return errs.Wrap(ErrUpdateSubmissionState, err)
	}

	log.Debug(ctx, "submission transitioned",
		slog.String("transition", transition.String()),
		slog.String("from", l.Submission.State),
		slog.String("to", updated.State))

	l.Submission = updated

	return nil
}

// Apply runs transition on sub in memory. The status code and the
// derived flags follow the new state.
func Apply(ctx context.Context, sub *model.Submission, transition Transition, now time.Time) error {
	if !slices.Contains(States, State(sub.State)) {
		return errs.Wrapf(ErrInvalidSubmissionState, sub.State)
	}

	machine := NewStateMachine(State(sub.State))

	err := machine.Event(ctx, transition.String())
	if err != nil {
		return errs.Wrap(NewTransitionError(transition), err)
	}

	code, err := sub.Status()
	if err != nil {
		return errs.Wrap(ErrStatusSideEffect, err)
	}

	code, err = statusSideEffect(code, transition)
	if err != nil {
		return errs.Wrap(ErrStatusSideEffect, err)
	}

	state := State(machine.Current())

	sub.StatusCode = code.String()
	sub.State = state.String()
	sub.Active = !state.Terminal()
	sub.Cancelled = state == StateCancelled

	if state.Terminal() && sub.Completed == nil {
		sub.Completed = &now
	}

	return nil
}

func statusSideEffect(code status.StatusCode, transition Transition) (status.StatusCode, error) {
	switch transition {
	case TransitionHold:
		return code.Set(status.StepCuration, status.CodeHeld)
	case TransitionAccept:
		return code.Set(status.StepCuration, status.CodeSuccess)
	case TransitionReject:
		return code.Fail(status.StepCuration)
	case TransitionFail:
		if code.Failed() {
			return code.Cancel(), nil
		}

		current, ok := code.Current()
		if !ok {
			return code, nil
		}

		return code.Fail(current.Name)
	case TransitionCancel:
		return code.Cancel(), nil
	case TransitionStart, TransitionSucceed:
		fallthrough
	default:
		return code, nil
	}
}
