package flow

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/materials-data-facility/connect/internal/errs"
)

// StateType is the kind of a flow state.
type StateType string

const (
	StateTypeAction         StateType = "Action"
	StateTypePass           StateType = "Pass"
	StateTypeChoice         StateType = "Choice"
	StateTypeWait           StateType = "Wait"
	StateTypeFail           StateType = "Fail"
	StateTypeExpressionEval StateType = "ExpressionEval"
)

var stateTypes = []StateType{
	StateTypeAction, StateTypePass, StateTypeChoice,
	StateTypeWait, StateTypeFail, StateTypeExpressionEval,
}

var (
	ErrInvalidDefinition = errors.New("invalid flow definition")
	ErrDecodeDefinition  = errors.New("failed to decode flow definition")
	ErrEncodeDefinition  = errors.New("failed to encode flow definition")
)

// Definition is a Globus Flows definition document.
type Definition struct {
	Comment string            `json:"Comment,omitempty" yaml:"Comment,omitempty"`
	StartAt string            `json:"StartAt" yaml:"StartAt"`
	States  map[string]*State `json:"States" yaml:"States"`
}

// State is one node of a flow definition.
type State struct {
	Type                     StateType      `json:"Type" yaml:"Type"`
	Comment                  string         `json:"Comment,omitempty" yaml:"Comment,omitempty"`
	ActionURL                string         `json:"ActionUrl,omitempty" yaml:"ActionUrl,omitempty"`
	ActionScope              string         `json:"ActionScope,omitempty" yaml:"ActionScope,omitempty"`
	RunAs                    string         `json:"RunAs,omitempty" yaml:"RunAs,omitempty"`
	Parameters               map[string]any `json:"Parameters,omitempty" yaml:"Parameters,omitempty"`
	ResultPath               string         `json:"ResultPath,omitempty" yaml:"ResultPath,omitempty"`
	WaitTime                 int            `json:"WaitTime,omitempty" yaml:"WaitTime,omitempty"`
	ExceptionOnActionFailure *bool          `json:"ExceptionOnActionFailure,omitempty" yaml:"ExceptionOnActionFailure,omitempty"`
	Seconds                  int            `json:"Seconds,omitempty" yaml:"Seconds,omitempty"`
	Choices                  []ChoiceRule   `json:"Choices,omitempty" yaml:"Choices,omitempty"`
	Default                  string         `json:"Default,omitempty" yaml:"Default,omitempty"`
	Catch                    []CatchRule    `json:"Catch,omitempty" yaml:"Catch,omitempty"`
	Cause                    string         `json:"Cause,omitempty" yaml:"Cause,omitempty"`
	Error                    string         `json:"Error,omitempty" yaml:"Error,omitempty"`
	Next                     string         `json:"Next,omitempty" yaml:"Next,omitempty"`
	End                      bool           `json:"End,omitempty" yaml:"End,omitempty"`
}

type ChoiceRule struct {
	Variable     string `json:"Variable" yaml:"Variable"`
	StringEquals string `json:"StringEquals,omitempty" yaml:"StringEquals,omitempty"`
	Next         string `json:"Next" yaml:"Next"`
}

type CatchRule struct {
	ErrorEquals []string `json:"ErrorEquals" yaml:"ErrorEquals"`
	Next        string   `json:"Next" yaml:"Next"`
	ResultPath  string   `json:"ResultPath,omitempty" yaml:"ResultPath,omitempty"`
}

// Terminal reports whether the flow can stop in s.
func (s *State) Terminal() bool {
	return s.End || s.Type == StateTypeFail
}

// successors lists every state reachable from s in one step.
func (s *State) successors() []string {
	var out []string

	if s.Next != "" {
		out = append(out, s.Next)
	}

	for _, c := range s.Choices {
		out = append(out, c.Next)
	}

	if s.Default != "" {
		out = append(out, s.Default)
	}

	for _, c := range s.Catch {
		out = append(out, c.Next)
	}

	return out
}

// Validate checks the structure of the definition: every transition
// target exists, every state is reachable from StartAt and the flow can
// terminate.
func (d *Definition) Validate() error {
	var problems []error

	if d.StartAt == "" {
		problems = append(problems, errors.New("StartAt is empty"))
	} else if _, ok := d.States[d.StartAt]; !ok {
		problems = append(problems, fmt.Errorf("StartAt %q is not a state", d.StartAt))
	}

	terminal := false

	for _, name := range d.StateNames() {
		state := d.States[name]
		if state == nil {
			problems = append(problems, fmt.Errorf("state %q is empty", name))
			continue
		}

		problems = append(problems, validateState(name, state)...)

		for _, target := range state.successors() {
			if _, ok := d.States[target]; !ok {
				problems = append(problems, fmt.Errorf("state %q points to unknown state %q", name, target))
			}
		}

		if state.Terminal() {
			terminal = true
		}
	}

	if !terminal {
		problems = append(problems, errors.New("no terminal state"))
	}

	if len(problems) == 0 {
		for _, name := range d.unreachable() {
			problems = append(problems, fmt.Errorf("state %q is unreachable", name))
		}
	}

	if len(problems) > 0 {
		return errs.Wrap(ErrInvalidDefinition, errors.Join(problems...))
	}

	return nil
}

func validateState(name string, state *State) []error {
	var problems []error

	if !slices.Contains(stateTypes, state.Type) {
		problems = append(problems, fmt.Errorf("state %q has unknown type %q", name, state.Type))
	}

	switch state.Type {
	case StateTypeChoice:
		if len(state.Choices) == 0 {
			problems = append(problems, fmt.Errorf("choice state %q has no choices", name))
		}

		if state.Next != "" || state.End {
			problems = append(problems, fmt.Errorf("choice state %q must not set Next or End", name))
		}
	case StateTypeFail:
		if state.Next != "" || state.End {
			problems = append(problems, fmt.Errorf("fail state %q must not set Next or End", name))
		}
	default:
		if (state.Next == "") == !state.End {
			problems = append(problems, fmt.Errorf("state %q must set exactly one of Next or End", name))
		}
	}

	if state.Type == StateTypeAction && state.ActionURL == "" {
		problems = append(problems, fmt.Errorf("action state %q has no ActionUrl", name))
	}

	return problems
}

func (d *Definition) unreachable() []string {
	seen := map[string]bool{d.StartAt: true}
	queue := []string{d.StartAt}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		for _, next := range d.States[name].successors() {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}

	var out []string

	for _, name := range d.StateNames() {
		if !seen[name] {
			out = append(out, name)
		}
	}

	return out
}

// StateNames returns the state names in a stable order.
func (d *Definition) StateNames() []string {
	names := make([]string, 0, len(d.States))
	for name := range d.States {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

func (d *Definition) JSON() ([]byte, error) {
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, errs.Wrap(ErrEncodeDefinition, err)
	}

	return out, nil
}

func (d *Definition) YAML() ([]byte, error) {
	out, err := yaml.Marshal(d)
	if err != nil {
		return nil, errs.Wrap(ErrEncodeDefinition, err)
	}

	return out, nil
}

// ParseDefinition reads a definition written as YAML or JSON.
func ParseDefinition(data []byte) (*Definition, error) {
	def := &Definition{}

	err := yaml.Unmarshal(data, def)
	if err != nil {
		return nil, errs.Wrap(ErrDecodeDefinition, err)
	}

	err = def.Validate()
	if err != nil {
		return nil, err
	}

	return def, nil
}
