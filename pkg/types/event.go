package types

// AgentEventType defines the type of event emitted by the agent.
type AgentEventType string

const (
	EventTypeRunStart      AgentEventType = "run_start"      // EventTypeRunStart indicates a run has acquired its browser and is about to step.
	EventTypeStepStart     AgentEventType = "step_start"     // EventTypeStepStart indicates a new loop iteration.
	EventTypeAPICallStart  AgentEventType = "api_call_start" // EventTypeAPICallStart indicates the agent is calling the LLM.
	EventTypeAPICallEnd    AgentEventType = "api_call_end"   // EventTypeAPICallEnd indicates the LLM call has returned.
	EventTypeStepOutput    AgentEventType = "step_output"    // EventTypeStepOutput carries the decoded step output as JSON.
	EventTypeActionResult  AgentEventType = "action_result"  // EventTypeActionResult indicates an action finished (successfully or not).
	EventTypeValidation    AgentEventType = "validation"     // EventTypeValidation carries the completion validator's verdict.
	EventTypeTokenUsage    AgentEventType = "token_usage"    // EventTypeTokenUsage indicates token usage information from an LLM completion.
	EventTypeError         AgentEventType = "error"          // EventTypeError indicates an error occurred during agent processing.
	EventTypeRunEnd        AgentEventType = "run_end"        // EventTypeRunEnd indicates the run has terminated.
)

// AgentEvent represents an event emitted by the agent during execution.
type AgentEvent struct {
	// Metadata holds optional additional information about the event.
	Metadata map[string]interface{}

	// Error contains error information for error events.
	Error error

	// TokenUsage contains token usage information (for token usage events).
	TokenUsage *TokenUsage

	// Content holds the text payload (step output JSON, result line, validation reason, answer).
	Content string

	// Action is the action type for action result events.
	Action string

	// Type indicates the kind of event.
	Type AgentEventType

	// Step is the zero-based loop iteration the event belongs to.
	Step int

	// Success reports the outcome for action result, validation and run end events.
	Success bool
}

// TokenUsage contains token usage statistics from an LLM API call.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the input/prompt.
	PromptTokens int `json:"prompt_tokens" yaml:"prompt_tokens"`

	// CompletionTokens is the number of tokens in the generated completion/response.
	CompletionTokens int `json:"completion_tokens" yaml:"completion_tokens"`

	// TotalTokens is the total number of tokens used (prompt + completion).
	TotalTokens int `json:"total_tokens" yaml:"total_tokens"`
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other *TokenUsage) {
	if other == nil {
		return
	}
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

func newEvent(t AgentEventType, step int) *AgentEvent {
	return &AgentEvent{
		Type:     t,
		Step:     step,
		Metadata: make(map[string]interface{}),
	}
}

// NewRunStartEvent creates a run start event.
func NewRunStartEvent(task string) *AgentEvent {
	e := newEvent(EventTypeRunStart, 0)
	e.Content = task
	return e
}

// NewStepStartEvent creates a step start event.
func NewStepStartEvent(step int) *AgentEvent {
	return newEvent(EventTypeStepStart, step)
}

// NewAPICallStartEvent creates an API call start event with the prompt size.
func NewAPICallStartEvent(step, messages, contextTokens int) *AgentEvent {
	e := newEvent(EventTypeAPICallStart, step)
	e.Metadata["messages"] = messages
	e.Metadata["context_tokens"] = contextTokens
	return e
}

// NewAPICallEndEvent creates an API call end event.
func NewAPICallEndEvent(step int) *AgentEvent {
	return newEvent(EventTypeAPICallEnd, step)
}

// NewStepOutputEvent creates an event carrying the model's step output.
func NewStepOutputEvent(step int, output string) *AgentEvent {
	e := newEvent(EventTypeStepOutput, step)
	e.Content = output
	return e
}

// NewActionResultEvent creates an action result event.
func NewActionResultEvent(step int, action string, success bool, message string) *AgentEvent {
	e := newEvent(EventTypeActionResult, step)
	e.Action = action
	e.Success = success
	e.Content = message
	return e
}

// NewValidationEvent creates a validation verdict event.
func NewValidationEvent(step int, valid bool, reason string) *AgentEvent {
	e := newEvent(EventTypeValidation, step)
	e.Success = valid
	e.Content = reason
	return e
}

// NewTokenUsageEvent creates a token usage event.
func NewTokenUsageEvent(step int, usage *TokenUsage) *AgentEvent {
	e := newEvent(EventTypeTokenUsage, step)
	if usage != nil {
		u := *usage
		e.TokenUsage = &u
	}
	return e
}

// NewErrorEvent creates an error event.
func NewErrorEvent(step int, err error) *AgentEvent {
	e := newEvent(EventTypeError, step)
	e.Error = err
	return e
}

// NewRunEndEvent creates a run end event.
func NewRunEndEvent(step int, success bool, answer string) *AgentEvent {
	e := newEvent(EventTypeRunEnd, step)
	e.Success = success
	e.Content = answer
	return e
}
