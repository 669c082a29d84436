// Package tui shows live progress of an agent run in the terminal.
//
// The package is split into:
// - executor.go: program lifecycle and event forwarding
// - model.go: Bubble Tea model, update and view
// - highlight.go: syntax highlighting for JSON results
// - styles.go: color scheme
package tui

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/surfer/pkg/agent"
	"github.com/entrhq/surfer/pkg/executor/headless"
	"github.com/entrhq/surfer/pkg/logging"
	"github.com/entrhq/surfer/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("tui")
	if err != nil {
		debugLog.Warnf("Failed to initialize tui logger, using stderr fallback: %v", err)
	}
}

// Executor runs a task while rendering its progress.
type Executor struct {
	runner  headless.Runner
	events  <-chan *types.AgentEvent
	options []tea.ProgramOption
}

// NewExecutor creates a TUI executor. events is the channel runner emits
// on; it may be nil.
func NewExecutor(runner headless.Runner, events <-chan *types.AgentEvent, opts ...tea.ProgramOption) *Executor {
	return &Executor{
		runner:  runner,
		events:  events,
		options: opts,
	}
}

// WithOutput renders to w instead of stdout.
func WithOutput(w io.Writer) tea.ProgramOption {
	return tea.WithOutput(w)
}

// Run executes the task and blocks until it finishes. Pressing ctrl+c
// cancels the run; Run still waits for the agent to close its browser.
func (e *Executor) Run(ctx context.Context, task, url string) (*agent.Output, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newModel(task, cancel)
	program := tea.NewProgram(m, e.options...)

	stop := make(chan struct{})
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for {
			select {
			case ev, ok := <-e.events:
				if !ok {
					return
				}
				debugLog.Debugf("forwarding agent event to TUI: %s", ev.Type)
				program.Send(ev)
			case <-stop:
				return
			}
		}
	}()

	runDone := make(chan runDoneMsg, 1)
	go func() {
		out, err := e.runner.Run(runCtx, task, url)
		runDone <- runDoneMsg{out: out, err: err}
		program.Send(runDoneMsg{out: out, err: err})
	}()

	if _, err := program.Run(); err != nil {
		debugLog.Warnf("TUI program exited with error: %v", err)
		cancel()
		result := <-runDone
		close(stop)
		<-forwarded
		if result.err != nil {
			return result.out, result.err
		}
		return result.out, fmt.Errorf("failed to run TUI program: %w", err)
	}

	result := <-runDone
	close(stop)
	<-forwarded
	return result.out, result.err
}
