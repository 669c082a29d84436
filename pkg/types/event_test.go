package types

import (
	"errors"
	"testing"
)

func TestAgentEventType(t *testing.T) {
	tests := []struct {
		eventType AgentEventType
		name      string
		expected  string
	}{
		{name: "run_start", eventType: EventTypeRunStart, expected: "run_start"},
		{name: "step_start", eventType: EventTypeStepStart, expected: "step_start"},
		{name: "api_call_start", eventType: EventTypeAPICallStart, expected: "api_call_start"},
		{name: "api_call_end", eventType: EventTypeAPICallEnd, expected: "api_call_end"},
		{name: "step_output", eventType: EventTypeStepOutput, expected: "step_output"},
		{name: "action_result", eventType: EventTypeActionResult, expected: "action_result"},
		{name: "validation", eventType: EventTypeValidation, expected: "validation"},
		{name: "token_usage", eventType: EventTypeTokenUsage, expected: "token_usage"},
		{name: "error", eventType: EventTypeError, expected: "error"},
		{name: "run_end", eventType: EventTypeRunEnd, expected: "run_end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.eventType) != tt.expected {
				t.Errorf("AgentEventType = %v, want %v", tt.eventType, tt.expected)
			}
		})
	}
}

func TestNewStepEvents(t *testing.T) {
	start := NewStepStartEvent(3)
	if start.Type != EventTypeStepStart {
		t.Errorf("StepStart type = %v, want %v", start.Type, EventTypeStepStart)
	}
	if start.Step != 3 {
		t.Errorf("StepStart step = %d, want 3", start.Step)
	}
	if start.Metadata == nil {
		t.Error("StepStart metadata should be initialized")
	}

	out := NewStepOutputEvent(3, `{"actions":[]}`)
	if out.Content != `{"actions":[]}` {
		t.Errorf("StepOutput content = %q", out.Content)
	}

	res := NewActionResultEvent(3, "click", false, "element not found")
	if res.Type != EventTypeActionResult || res.Action != "click" || res.Success {
		t.Errorf("unexpected action result event: %+v", res)
	}
	if res.Content != "element not found" {
		t.Errorf("ActionResult content = %q", res.Content)
	}
}

func TestNewAPIEvents(t *testing.T) {
	start := NewAPICallStartEvent(1, 6, 4200)
	if start.Type != EventTypeAPICallStart {
		t.Errorf("APICallStart type = %v, want %v", start.Type, EventTypeAPICallStart)
	}
	if start.Metadata["messages"] != 6 {
		t.Errorf("messages metadata = %v, want 6", start.Metadata["messages"])
	}
	if start.Metadata["context_tokens"] != 4200 {
		t.Errorf("context_tokens metadata = %v, want 4200", start.Metadata["context_tokens"])
	}

	end := NewAPICallEndEvent(1)
	if end.Type != EventTypeAPICallEnd {
		t.Errorf("APICallEnd type = %v, want %v", end.Type, EventTypeAPICallEnd)
	}
}

func TestNewTokenUsageEventCopiesUsage(t *testing.T) {
	usage := &TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	e := NewTokenUsageEvent(0, usage)
	usage.TotalTokens = 99

	if e.TokenUsage == nil {
		t.Fatal("TokenUsage not set")
	}
	if e.TokenUsage.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", e.TokenUsage.TotalTokens)
	}

	if NewTokenUsageEvent(0, nil).TokenUsage != nil {
		t.Error("nil usage should produce nil TokenUsage")
	}
}

func TestNewTerminalEvents(t *testing.T) {
	err := errors.New("browser crashed")
	errEvent := NewErrorEvent(2, err)
	if errEvent.Error != err {
		t.Error("Error event error not set correctly")
	}

	val := NewValidationEvent(2, false, "answer not on page")
	if val.Success || val.Content != "answer not on page" {
		t.Errorf("unexpected validation event: %+v", val)
	}

	end := NewRunEndEvent(2, true, "42")
	if end.Type != EventTypeRunEnd || !end.Success || end.Content != "42" {
		t.Errorf("unexpected run end event: %+v", end)
	}
}

func TestTokenUsageAdd(t *testing.T) {
	total := &TokenUsage{}
	total.Add(&TokenUsage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5})
	total.Add(nil)
	total.Add(&TokenUsage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2})

	if total.PromptTokens != 4 || total.CompletionTokens != 3 || total.TotalTokens != 7 {
		t.Errorf("unexpected total: %+v", total)
	}
}

func TestMessageClone(t *testing.T) {
	m := NewUserImageMessage("look", []byte{1, 2, 3})
	c := m.Clone()
	c.Image[0] = 9

	if m.Image[0] != 1 {
		t.Error("Clone should not share image bytes")
	}
	if !c.HasImage() {
		t.Error("clone should keep image")
	}
	if NewUserMessage("x").HasImage() {
		t.Error("plain user message should not have an image")
	}
}
