package actions

import (
	"errors"
	"fmt"

	json "github.com/json-iterator/go"
)

// ErrInvalidStepOutput is wrapped by every step output decoding failure.
var ErrInvalidStepOutput = errors.New("invalid step output")

// RelevantInteraction is an element the model considers useful on the
// current page.
type RelevantInteraction struct {
	ID     string `json:"id" yaml:"id"`
	Reason string `json:"reason" yaml:"reason"`
}

// AgentState is the reasoning the model reports alongside its actions.
type AgentState struct {
	PreviousGoalStatus   string                `json:"previous_goal_status" yaml:"previous_goal_status"`
	PreviousGoalEval     string                `json:"previous_goal_eval" yaml:"previous_goal_eval"`
	PageSummary          string                `json:"page_summary" yaml:"page_summary"`
	RelevantInteractions []RelevantInteraction `json:"relevant_interactions" yaml:"relevant_interactions"`
	Memory               string                `json:"memory" yaml:"memory"`
	NextGoal             string                `json:"next_goal,omitempty" yaml:"next_goal,omitempty"`
}

// StepOutput is the decoded model response for one turn. Exactly one of
// Completion and Actions is set.
type StepOutput struct {
	State      AgentState
	Completion *CompletionAction
	Actions    []Action
}

type wireStepOutput struct {
	State   AgentState        `json:"state"`
	Actions []json.RawMessage `json:"actions"`
}

// DecodeStepOutput decodes and checks a raw model reply. A completion must be
// the only action in the list.
func DecodeStepOutput(raw []byte) (*StepOutput, error) {
	var wire wireStepOutput
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStepOutput, err)
	}
	if len(wire.Actions) == 0 {
		return nil, fmt.Errorf("%w: \"actions\" must contain at least one action", ErrInvalidStepOutput)
	}

	out := &StepOutput{State: wire.State}
	for i, rawAction := range wire.Actions {
		a, err := DecodeAction(rawAction)
		if err != nil {
			return nil, fmt.Errorf("%w: action %d: %v", ErrInvalidStepOutput, i, err)
		}
		if c, ok := a.(*CompletionAction); ok {
			if len(wire.Actions) != 1 {
				return nil, fmt.Errorf("%w: completion must be the only action, got %d actions", ErrInvalidStepOutput, len(wire.Actions))
			}
			out.Completion = c
			return out, nil
		}
		out.Actions = append(out.Actions, a)
	}
	return out, nil
}

// IsCompletion reports whether the output is a terminal completion claim.
func (o *StepOutput) IsCompletion() bool {
	return o != nil && o.Completion != nil
}

// GetActions returns at most max actions in order. max <= 0 returns all.
func (o *StepOutput) GetActions(max int) []Action {
	if o == nil || o.IsCompletion() {
		return nil
	}
	if max <= 0 || max >= len(o.Actions) {
		return o.Actions
	}
	return o.Actions[:max]
}

// MarshalJSON encodes the output back to the wire schema.
func (o *StepOutput) MarshalJSON() ([]byte, error) {
	list := o.Actions
	if o.IsCompletion() {
		list = []Action{o.Completion}
	}

	encoded := make([]json.RawMessage, 0, len(list))
	for _, a := range list {
		b, err := EncodeAction(a)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, b)
	}
	return json.Marshal(wireStepOutput{State: o.State, Actions: encoded})
}

// String renders the output as compact JSON for conversation replay.
func (o *StepOutput) String() string {
	b, err := o.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<unencodable step output: %v>", err)
	}
	return string(b)
}
