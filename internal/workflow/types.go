package workflow

import "slices"

// State represents the state of a submission in the state-machine.
type State string

func (s State) String() string {
	return string(s)
}

// Terminal states accept no further transitions.
func (s State) Terminal() bool {
	return slices.Contains(TerminalStates, s)
}

// Transition represents the transition of a submission in the state-machine.
type Transition string

func (t Transition) String() string {
	return string(t)
}

const (
	StatePending          State = "PENDING"
	StateInProgress       State = "IN_PROGRESS"
	StateAwaitingCuration State = "AWAITING_CURATION"
	StateSucceeded        State = "SUCCEEDED"
	StateFailed           State = "FAILED"
	StateCancelled        State = "CANCELLED"

	TransitionStart   Transition = "START"
	TransitionHold    Transition = "HOLD"
	TransitionAccept  Transition = "ACCEPT"
	TransitionReject  Transition = "REJECT"
	TransitionSucceed Transition = "SUCCEED"
	TransitionFail    Transition = "FAIL"
	TransitionCancel  Transition = "CANCEL"
)

var States = []State{
	StatePending, StateInProgress, StateAwaitingCuration,
	StateSucceeded, StateFailed, StateCancelled,
}

var Transitions = []Transition{
	TransitionStart, TransitionHold, TransitionAccept, TransitionReject,
	TransitionSucceed, TransitionFail, TransitionCancel,
}

var NonTerminalStates = []State{
	StatePending,
	StateInProgress,
	StateAwaitingCuration,
}

var TerminalStates = []State{
	StateSucceeded,
	StateFailed,
	StateCancelled,
}
