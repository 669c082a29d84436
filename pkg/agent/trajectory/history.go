// Package trajectory records what the agent decided and what happened when
// its actions ran, and renders that record back into prompt text.
package trajectory

import (
	"fmt"
	"strings"

	"github.com/entrhq/surfer/pkg/actions"
	"github.com/entrhq/surfer/pkg/agent/executor"
	"github.com/entrhq/surfer/pkg/browser"
)

// DefaultMaxErrorLength caps rendered failure messages.
const DefaultMaxErrorLength = 500

const (
	historyStart = "[Start of action execution history memory]"
	historyEnd   = "[End of action execution history memory]"
)

const startRules = `[Start of action execution history memory]
No action has been executed yet. Start by observing the page or navigating to the page that is most likely to contain what the task needs.
Rules:
- Only use element ids that appear in the current observation.
- Emit a completion action as soon as the task is solved or cannot be solved.
[End of action execution history memory]`

// Step is one agent turn: the model output and the results of the actions
// it selected.
type Step struct {
	Output  *actions.StepOutput         `json:"output"`
	Results []*executor.ExecutionResult `json:"results"`
}

// History is the append-only trajectory of a run. It is owned by one agent
// loop and not safe for concurrent use.
type History struct {
	maxErrorLength int
	steps          []*Step
}

// New creates an empty history. maxErrorLength <= 0 uses the default.
func New(maxErrorLength int) *History {
	if maxErrorLength <= 0 {
		maxErrorLength = DefaultMaxErrorLength
	}
	return &History{maxErrorLength: maxErrorLength}
}

// Reset removes every step.
func (h *History) Reset() {
	h.steps = nil
}

// AddOutput opens a new step for output.
func (h *History) AddOutput(output *actions.StepOutput) {
	h.steps = append(h.steps, &Step{Output: output})
}

// AddStep appends result to the current step. A step without output is
// opened when none exists yet.
func (h *History) AddStep(result *executor.ExecutionResult) {
	if len(h.steps) == 0 {
		h.steps = append(h.steps, &Step{})
	}
	last := h.steps[len(h.steps)-1]
	last.Results = append(last.Results, result)
}

// Steps returns a copy of the recorded steps.
func (h *History) Steps() []Step {
	out := make([]Step, len(h.steps))
	for i, s := range h.steps {
		out[i] = Step{
			Output:  s.Output,
			Results: append([]*executor.ExecutionResult(nil), s.Results...),
		}
	}
	return out
}

// Len returns the number of steps.
func (h *History) Len() int {
	return len(h.steps)
}

// Results returns every execution result in order.
func (h *History) Results() []*executor.ExecutionResult {
	var out []*executor.ExecutionResult
	for _, s := range h.steps {
		out = append(out, s.Results...)
	}
	return out
}

// MaxErrorLength returns the cap applied to failure messages.
func (h *History) MaxErrorLength() int {
	return h.maxErrorLength
}

// LastObs returns the observation of the most recent successful result.
func (h *History) LastObs() *browser.Observation {
	for i := len(h.steps) - 1; i >= 0; i-- {
		results := h.steps[i].Results
		for j := len(results) - 1; j >= 0; j-- {
			if r := results[j]; r.Success && r.Output != nil {
				return r.Output
			}
		}
	}
	return nil
}

// StartRules is the preamble shown before any step exists.
func (h *History) StartRules() string {
	return startRules
}

// PerceiveStepResult renders one result as a single line.
func (h *History) PerceiveStepResult(result *executor.ExecutionResult, includeIDs bool) string {
	var b strings.Builder
	b.WriteString("action '")
	if result.Input != nil {
		b.WriteString(string(result.Input.Type()))
	} else {
		b.WriteString("unknown")
	}
	b.WriteString("'")

	if includeIDs {
		if ia, ok := result.Input.(actions.InteractionAction); ok && ia.ElementID() != "" {
			fmt.Fprintf(&b, " with id=%s", ia.ElementID())
		}
	}

	if result.Success {
		fmt.Fprintf(&b, " succeeded: '%s'", result.Message)
	} else {
		fmt.Fprintf(&b, " failed with error: %s", h.capError(result.Message))
	}
	return b.String()
}

// Perceive renders the whole history as one compact block.
func (h *History) Perceive() string {
	if len(h.steps) == 0 {
		return h.StartRules()
	}

	var b strings.Builder
	b.WriteString(historyStart)
	b.WriteString("\n")
	for i, s := range h.steps {
		fmt.Fprintf(&b, "\n# Execution step %d\n", i+1)
		if s.Output != nil {
			writeState(&b, s.Output.State)
			fmt.Fprintf(&b, "* Selected actions: %s\n", selectedActions(s.Output))
		}
		if len(s.Results) > 0 {
			b.WriteString("* Execution results:\n")
			for _, r := range s.Results {
				fmt.Fprintf(&b, "  - %s\n", h.PerceiveStepResult(r, true))
			}
		}
	}
	b.WriteString("\n")
	b.WriteString(historyEnd)
	return b.String()
}

func (h *History) capError(msg string) string {
	runes := []rune(msg)
	if len(runes) <= h.maxErrorLength {
		return msg
	}
	return string(runes[:h.maxErrorLength]) + "..."
}

func writeState(b *strings.Builder, s actions.AgentState) {
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(b, "* %s: %s\n", name, value)
		}
	}
	field("Previous goal status", s.PreviousGoalStatus)
	field("Previous goal evaluation", s.PreviousGoalEval)
	field("Page summary", s.PageSummary)
	field("Memory", s.Memory)
	field("Next goal", s.NextGoal)
}

func selectedActions(out *actions.StepOutput) string {
	list := out.Actions
	if out.IsCompletion() {
		list = []actions.Action{out.Completion}
	}
	parts := make([]string, 0, len(list))
	for _, a := range list {
		encoded, err := actions.EncodeAction(a)
		if err != nil {
			parts = append(parts, string(a.Type()))
			continue
		}
		parts = append(parts, string(encoded))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
