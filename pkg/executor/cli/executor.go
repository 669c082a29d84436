// Package cli provides an interactive command-line executor for surfer.
//
// Each line read from the input is one task. A line may start with a URL, in
// which case the run starts on that page:
//
//	> https://books.test find the cheapest paperback of Dune
//	> what is the weather in Lyon today
//
// Example usage:
//
//	events := make(chan *types.AgentEvent)
//	ag, _ := agent.New(provider, env, agent.WithEventChannel(events))
//
//	executor := cli.NewExecutor(ag, events, cli.WithShowGoals(true))
//	if err := executor.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/entrhq/surfer/pkg/actions"
	"github.com/entrhq/surfer/pkg/executor/headless"
	"github.com/entrhq/surfer/pkg/types"
)

// Executor reads tasks from a terminal and runs them one at a time.
type Executor struct {
	runner headless.Runner
	events <-chan *types.AgentEvent
	reader *bufio.Reader
	writer io.Writer
	mu     sync.Mutex // guards writer

	showGoals bool
}

// ExecutorOption is a function that configures an Executor.
type ExecutorOption func(*Executor)

// WithShowGoals prints the model's next goal for every step.
func WithShowGoals(show bool) ExecutorOption {
	return func(e *Executor) {
		e.showGoals = show
	}
}

// WithWriter sets a custom output writer (default is os.Stdout).
func WithWriter(w io.Writer) ExecutorOption {
	return func(e *Executor) {
		e.writer = w
	}
}

// WithReader sets a custom input reader (default is os.Stdin).
func WithReader(r io.Reader) ExecutorOption {
	return func(e *Executor) {
		e.reader = bufio.NewReader(r)
	}
}

// NewExecutor creates a new CLI executor. events is the channel the runner
// emits on; it may be nil.
func NewExecutor(runner headless.Runner, events <-chan *types.AgentEvent, opts ...ExecutorOption) *Executor {
	e := &Executor{
		runner: runner,
		events: events,
		reader: bufio.NewReader(os.Stdin),
		writer: os.Stdout,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run starts the read-run loop. It returns when the input ends, the user
// types exit or quit, or ctx is canceled.
func (e *Executor) Run(ctx context.Context) error {
	stop := make(chan struct{})
	eventsDone := make(chan struct{})
	go e.handleEvents(stop, eventsDone)
	defer func() {
		close(stop)
		<-eventsDone
	}()

	e.printf("Surfer\n")
	e.printf("Type a task and press Enter. Prefix it with a URL to start there. Type 'exit' or 'quit' to leave.\n\n")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		e.printf("> ")
		input, err := e.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read input: %w", err)
		}
		atEOF := err == io.EOF

		input = strings.TrimSpace(input)
		switch {
		case input == "exit" || input == "quit":
			return nil
		case input != "":
			url, task := ParseTaskLine(input)
			e.runTask(ctx, task, url)
		}

		if atEOF {
			e.printf("\n")
			return nil
		}
	}
}

func (e *Executor) runTask(ctx context.Context, task, url string) {
	out, err := e.runner.Run(ctx, task, url)
	if err != nil {
		e.printf("\n[Error: %v]\n\n", err)
		return
	}
	label := "Answer"
	if !out.Success {
		label = "Failed"
	}
	e.printf("\n%s: %s\n", label, out.Answer)
	e.printf("(%d steps, %d tokens, %.1fs)\n\n", out.Steps(), out.LLMUsage.Total.TotalTokens, out.Duration.Seconds())
}

// ParseTaskLine splits an optional leading http(s) URL from the task text.
func ParseTaskLine(line string) (url, task string) {
	line = strings.TrimSpace(line)
	first, rest, found := strings.Cut(line, " ")
	if found && (strings.HasPrefix(first, "http://") || strings.HasPrefix(first, "https://")) {
		return first, strings.TrimSpace(rest)
	}
	return "", line
}

// handleEvents renders events until stop is closed.
func (e *Executor) handleEvents(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	events := e.events
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			e.handleEvent(ev)
		case <-stop:
			return
		}
	}
}

// handleEvent processes a single event based on its type
func (e *Executor) handleEvent(event *types.AgentEvent) {
	switch event.Type {
	case types.EventTypeStepStart:
		e.printf("[step %d]\n", event.Step+1)
	case types.EventTypeStepOutput:
		if e.showGoals {
			if goal := nextGoal(event.Content); goal != "" {
				e.printf("  goal: %s\n", goal)
			}
		}
	case types.EventTypeActionResult:
		mark := "✓"
		if !event.Success {
			mark = "✗"
		}
		e.printf("  %s %s\n", mark, event.Content)
	case types.EventTypeValidation:
		if event.Success {
			e.printf("  completion accepted: %s\n", event.Content)
		} else {
			e.printf("  completion rejected: %s\n", event.Content)
		}
	case types.EventTypeError:
		if event.Error != nil {
			e.printf("  error: %v\n", event.Error)
		}
	}
}

func (e *Executor) printf(format string, args ...interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintf(e.writer, format, args...)
}

func nextGoal(stepJSON string) string {
	out, err := actions.DecodeStepOutput([]byte(stepJSON))
	if err != nil {
		return ""
	}
	return out.State.NextGoal
}
