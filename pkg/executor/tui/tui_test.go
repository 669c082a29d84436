package tui

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/surfer/pkg/agent"
	"github.com/entrhq/surfer/pkg/types"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func plain(s string) string { return ansi.ReplaceAllString(s, "") }

func update(t *testing.T, m model, msgs ...tea.Msg) (model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		var ok bool
		m, ok = next.(model)
		require.True(t, ok)
	}
	return m, cmd
}

func TestModelRendersProgress(t *testing.T) {
	m := newModel("find the price", nil)
	m, _ = update(t, m,
		types.NewRunStartEvent("find the price"),
		types.NewStepStartEvent(0),
		types.NewTokenUsageEvent(0, &types.TokenUsage{PromptTokens: 100, CompletionTokens: 20}),
		types.NewActionResultEvent(0, "goto", true, "action 'goto' succeeded: 'Navigated to https://shop.test'"),
		types.NewStepStartEvent(1),
		types.NewTokenUsageEvent(1, &types.TokenUsage{PromptTokens: 150, CompletionTokens: 10}),
		types.NewValidationEvent(1, false, "price not shown"),
	)

	view := plain(m.View())
	assert.Contains(t, view, "find the price")
	assert.Contains(t, view, "step 2")
	assert.Contains(t, view, "Navigated to https://shop.test")
	assert.Contains(t, view, "completion rejected: price not shown")
	assert.Contains(t, view, "tokens: 250 in / 30 out")
}

func TestModelKeepsLastLines(t *testing.T) {
	m := newModel("t", nil)
	for i := 0; i < maxLines+5; i++ {
		m, _ = update(t, m, types.NewActionResultEvent(0, "wait", true, "line"))
	}
	assert.Len(t, m.lines, maxLines)
}

func TestModelCancelOnKey(t *testing.T) {
	var cancelled int
	m := newModel("t", func() { cancelled++ })

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Nil(t, cmd, "the program waits for the run to stop")
	assert.True(t, m.cancelling)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Equal(t, 1, cancelled)
	assert.Contains(t, plain(m.View()), "cancelling")
}

func TestModelQuitsWhenRunEnds(t *testing.T) {
	m := newModel("t", nil)
	boom := errors.New("boom")
	out := &agent.Output{Answer: "done"}

	m, cmd := update(t, m, runDoneMsg{out: out, err: boom})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.done)
	assert.Same(t, out, m.out)
	assert.ErrorIs(t, m.err, boom)
}

func TestHighlightJSON(t *testing.T) {
	src := `{"answer": "42", "success": true}`
	got := HighlightJSON(src)
	assert.Equal(t, src, strings.TrimRight(plain(got), "\n"))
}

func TestRenderAnswer(t *testing.T) {
	assert.Contains(t, plain(RenderAnswer("42 EUR", true)), "solved")
	assert.Contains(t, plain(RenderAnswer("site down", false)), "not solved")
}
