package actions

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Action
		wantErr bool
	}{
		{name: "goto", raw: `{"type":"goto","url":"https://example.com"}`, want: &GotoAction{URL: "https://example.com"}},
		{name: "click", raw: `{"type":"click","id":"B3"}`, want: &ClickAction{ID: "B3"}},
		{name: "fill with enter", raw: `{"type":"fill","id":"I1","value":"books","press_enter":true}`, want: &FillAction{ID: "I1", Value: "books", PressEnter: true}},
		{name: "press key", raw: `{"type":"press_key","key":"Enter"}`, want: &PressKeyAction{Key: "Enter"}},
		{name: "scroll", raw: `{"type":"scroll","direction":"down"}`, want: &ScrollAction{Direction: ScrollDown}},
		{name: "go back", raw: `{"type":"go_back"}`, want: &GoBackAction{}},
		{name: "wait", raw: `{"type":"wait","time_ms":500}`, want: &WaitAction{TimeMs: 500}},
		{name: "scrape", raw: `{"type":"scrape"}`, want: &ScrapeAction{}},
		{name: "completion", raw: `{"type":"completion","success":true,"answer":"42"}`, want: &CompletionAction{Success: true, Answer: "42"}},
		{name: "missing type", raw: `{"url":"https://example.com"}`, wantErr: true},
		{name: "unknown type", raw: `{"type":"teleport"}`, wantErr: true},
		{name: "click without id", raw: `{"type":"click"}`, wantErr: true},
		{name: "bad scroll direction", raw: `{"type":"scroll","direction":"left"}`, wantErr: true},
		{name: "wait too long", raw: `{"type":"wait","time_ms":60000}`, wantErr: true},
		{name: "wrong field type", raw: `{"type":"wait","time_ms":"soon"}`, wantErr: true},
		{name: "not json", raw: `click B3`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAction([]byte(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidAction))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeAction(t *testing.T) {
	b, err := EncodeAction(&ClickAction{ID: "L2"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"click","id":"L2"}`, string(b))

	b, err = EncodeAction(&GoBackAction{})
	require.NoError(t, err)
	assert.Equal(t, `{"type":"go_back"}`, string(b))

	decoded, err := DecodeAction(b)
	require.NoError(t, err)
	assert.Equal(t, TypeGoBack, decoded.Type())
}

func TestDecodeStepOutput(t *testing.T) {
	raw := `{
		"state": {
			"previous_goal_status": "success",
			"previous_goal_eval": "search box is visible",
			"page_summary": "home page",
			"relevant_interactions": [{"id": "I1", "reason": "search"}],
			"memory": "",
			"next_goal": "search for books"
		},
		"actions": [
			{"type": "fill", "id": "I1", "value": "books"},
			{"type": "press_key", "key": "Enter"}
		]
	}`

	out, err := DecodeStepOutput([]byte(raw))
	require.NoError(t, err)
	assert.False(t, out.IsCompletion())
	assert.Equal(t, "search for books", out.State.NextGoal)
	require.Len(t, out.State.RelevantInteractions, 1)
	require.Len(t, out.Actions, 2)

	assert.Len(t, out.GetActions(1), 1)
	assert.Len(t, out.GetActions(0), 2)
	assert.Len(t, out.GetActions(5), 2)
	assert.Equal(t, TypeFill, out.GetActions(1)[0].Type())
}

func TestDecodeStepOutputCompletion(t *testing.T) {
	out, err := DecodeStepOutput([]byte(`{"state":{},"actions":[{"type":"completion","success":false,"answer":"not found"}]}`))
	require.NoError(t, err)
	require.True(t, out.IsCompletion())
	assert.False(t, out.Completion.Success)
	assert.Equal(t, "not found", out.Completion.Answer)
	assert.Empty(t, out.GetActions(0))
}

func TestDecodeStepOutputRejects(t *testing.T) {
	tests := map[string]string{
		"malformed":             `{"actions": [`,
		"no actions":            `{"state":{},"actions":[]}`,
		"missing actions":       `{"state":{}}`,
		"unknown action":        `{"actions":[{"type":"hover","id":"B1"}]}`,
		"invalid action":        `{"actions":[{"type":"click"}]}`,
		"completion with peers": `{"actions":[{"type":"click","id":"B1"},{"type":"completion","success":true,"answer":"x"}]}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			out, err := DecodeStepOutput([]byte(raw))
			assert.Nil(t, out)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidStepOutput))
		})
	}
}

func TestStepOutputMarshalRoundTrip(t *testing.T) {
	out := &StepOutput{
		State:   AgentState{PageSummary: "results", NextGoal: "open first"},
		Actions: []Action{&ClickAction{ID: "L4"}, &WaitAction{TimeMs: 100}},
	}

	decoded, err := DecodeStepOutput([]byte(out.String()))
	require.NoError(t, err)
	assert.Equal(t, out.State, decoded.State)
	assert.Equal(t, out.Actions, decoded.Actions)

	done := &StepOutput{Completion: &CompletionAction{Success: true, Answer: "done"}}
	assert.Contains(t, done.String(), `"type":"completion"`)
}

func TestExecutionMessages(t *testing.T) {
	assert.Equal(t, "Clicked on the element with id B3", (&ClickAction{ID: "B3"}).ExecutionMessage())
	assert.Equal(t, "Navigated to 'https://a.test' in current tab", (&GotoAction{URL: "https://a.test"}).ExecutionMessage())
	assert.Equal(t, "Scrolled down by one page", (&ScrollAction{Direction: ScrollDown}).ExecutionMessage())
	assert.Equal(t, "Scrolled up by 200 pixels", (&ScrollAction{Direction: ScrollUp, Amount: 200}).ExecutionMessage())
	assert.Contains(t, (&FillAction{ID: "I1", Value: "x", PressEnter: true}).ExecutionMessage(), "pressed Enter")
}
