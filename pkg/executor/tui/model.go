package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/surfer/pkg/agent"
	"github.com/entrhq/surfer/pkg/types"
)

// maxLines is how many progress lines stay on screen.
const maxLines = 12

// runDoneMsg carries the result of the agent run.
type runDoneMsg struct {
	out *agent.Output
	err error
}

// model is the progress view of a single run.
type model struct {
	spinner spinner.Model
	cancel  context.CancelFunc

	task   string
	step   int
	status string
	lines  []string

	promptTokens     int
	completionTokens int

	width      int
	done       bool
	cancelling bool
	out        *agent.Output
	err        error
}

func newModel(task string, cancel context.CancelFunc) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = headerStyle
	return model{
		spinner: s,
		cancel:  cancel,
		task:    task,
		status:  "starting browser",
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !m.cancelling && m.cancel != nil {
				m.cancelling = true
				m.status = "cancelling"
				m.cancel()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case *types.AgentEvent:
		m.handleEvent(msg)
		return m, nil

	case runDoneMsg:
		m.done = true
		m.out = msg.out
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *model) handleEvent(ev *types.AgentEvent) {
	switch ev.Type {
	case types.EventTypeRunStart:
		m.status = "running"
	case types.EventTypeStepStart:
		m.step = ev.Step + 1
		m.status = "thinking"
	case types.EventTypeAPICallEnd:
		m.status = "acting"
	case types.EventTypeActionResult:
		if ev.Success {
			m.addLine(successStyle.Render("✓ ") + ev.Content)
		} else {
			m.addLine(errorStyle.Render("✗ ") + ev.Content)
		}
	case types.EventTypeValidation:
		m.status = "validating"
		if ev.Success {
			m.addLine(successStyle.Render("✓ completion accepted: ") + ev.Content)
		} else {
			m.addLine(errorStyle.Render("✗ completion rejected: ") + ev.Content)
		}
	case types.EventTypeTokenUsage:
		if ev.TokenUsage != nil {
			m.promptTokens += ev.TokenUsage.PromptTokens
			m.completionTokens += ev.TokenUsage.CompletionTokens
		}
	case types.EventTypeError:
		if ev.Error != nil {
			m.addLine(errorStyle.Render("error: ") + ev.Error.Error())
		}
	case types.EventTypeRunEnd:
		m.status = "finished"
	}
}

func (m *model) addLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLines {
		m.lines = m.lines[len(m.lines)-maxLines:]
	}
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("surfer"))
	b.WriteString("  ")
	b.WriteString(taskStyle.Render(m.task))
	b.WriteString("\n\n")

	for _, line := range m.lines {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(m.lines) > 0 {
		b.WriteString("\n")
	}

	if m.done {
		b.WriteString(stepStyle.Render("done"))
	} else {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		if m.step > 0 {
			b.WriteString(stepStyle.Render(fmt.Sprintf("step %d", m.step)))
			b.WriteString(" ")
		}
		b.WriteString(mutedStyle.Render(m.status))
	}
	b.WriteString("\n")

	b.WriteString(statusBarStyle.Render(fmt.Sprintf("tokens: %d in / %d out  •  ctrl+c to stop",
		m.promptTokens, m.completionTokens)))
	b.WriteString("\n")
	return b.String()
}
