// Package prompts builds the system and task prompts for the agent loop.
package prompts

import (
	"fmt"
	"strings"

	"github.com/entrhq/surfer/pkg/actions"
)

// Builder produces the two fixed messages at the head of every conversation.
type Builder interface {
	System() string
	Task(task string) string
}

// Default is the standard prompt builder.
type Default struct {
	maxActionsPerStep  int
	customInstructions string
}

// NewDefault creates a builder that allows up to maxActionsPerStep actions
// per response. Values below 1 are treated as 1.
func NewDefault(maxActionsPerStep int) *Default {
	if maxActionsPerStep < 1 {
		maxActionsPerStep = 1
	}
	return &Default{maxActionsPerStep: maxActionsPerStep}
}

// WithCustomInstructions adds user-provided instructions ahead of the
// built-in sections.
func (d *Default) WithCustomInstructions(instructions string) *Default {
	d.customInstructions = instructions
	return d
}

// MaxActionsPerStep reports the action limit advertised to the model.
func (d *Default) MaxActionsPerStep() int {
	return d.maxActionsPerStep
}

// System constructs the complete system prompt by assembling all sections.
func (d *Default) System() string {
	var builder strings.Builder

	if d.customInstructions != "" {
		builder.WriteString("<custom_instructions>\n")
		builder.WriteString(d.customInstructions)
		builder.WriteString("\n</custom_instructions>\n\n")
	}

	builder.WriteString(SystemCapabilitiesPrompt)
	builder.WriteString("\n\n")

	builder.WriteString(AgentLoopPrompt)
	builder.WriteString("\n\n")

	builder.WriteString(ObservationPrompt)
	builder.WriteString("\n\n")

	builder.WriteString(fmt.Sprintf(OutputFormatPrompt, d.maxActionsPerStep, FormatActionCatalogue()))
	builder.WriteString("\n\n")

	builder.WriteString(RulesPrompt)
	if d.maxActionsPerStep == 1 {
		builder.WriteString("\n\nReturn exactly one action per response.")
	}

	return builder.String()
}

// Task wraps the user's task.
func (d *Default) Task(task string) string {
	return fmt.Sprintf("<task>\n%s\n</task>\n\nSolve this task using the browser. Start by reading the action execution history and the current page.", task)
}

type actionDoc struct {
	example     actions.Action
	description string
}

var actionDocs = []actionDoc{
	{&actions.GotoAction{URL: "https://www.example.com"}, "Navigate the current tab to a URL"},
	{&actions.ClickAction{ID: "B3"}, "Click the interactive element with the given ID"},
	{&actions.FillAction{ID: "I1", Value: "text to type", PressEnter: true}, "Type a value into an input; press_enter is optional"},
	{&actions.PressKeyAction{Key: "Enter"}, "Press a keyboard key on the focused element"},
	{&actions.ScrollAction{Direction: actions.ScrollDown}, "Scroll \"up\" or \"down\"; amount in pixels is optional and defaults to one page"},
	{&actions.GoBackAction{}, "Go back to the previous page"},
	{&actions.WaitAction{TimeMs: 1000}, fmt.Sprintf("Wait for the page to settle, at most %d ms", actions.MaxWaitMs)},
	{&actions.ScrapeAction{Instructions: "list every product name and price"}, "Extract the page content as data; instructions are optional"},
	{&actions.CompletionAction{Success: true, Answer: "the final answer"}, "Finish the task; must be the only action"},
}

// FormatActionCatalogue renders one example line per action type. The
// examples are produced by the same encoder that the decoder accepts.
func FormatActionCatalogue() string {
	var b strings.Builder
	for _, doc := range actionDocs {
		encoded, err := actions.EncodeAction(doc.example)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", doc.example.Type(), doc.description)
		fmt.Fprintf(&b, "  %s\n", encoded)
	}
	return b.String()
}
