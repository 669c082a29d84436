package headless

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/surfer/pkg/agent"
	"github.com/entrhq/surfer/pkg/logging"
	"github.com/entrhq/surfer/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("headless")
	if err != nil {
		debugLog.Warnf("Failed to initialize headless logger, using stderr fallback: %v", err)
	}
}

// Run statuses reported in RunSummary.Status.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusError   = "error"
)

// Runner runs one task. *agent.Agent implements it.
type Runner interface {
	Run(ctx context.Context, task, url string) (*agent.Output, error)
}

// Executor implements the headless mode executor
type Executor struct {
	runner         Runner
	events         <-chan *types.AgentEvent
	config         *Config
	logger         *Logger
	artifactWriter *ArtifactWriter
	newRunID       func() string
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger replaces the stdout console logger.
func WithLogger(l *Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithRunID sets how run IDs are generated. Defaults to random UUIDs.
func WithRunID(fn func() string) Option {
	return func(e *Executor) {
		e.newRunID = fn
	}
}

// NewExecutor creates a headless executor. events is the channel the runner
// was configured to emit on; it may be nil.
func NewExecutor(runner Runner, events <-chan *types.AgentEvent, config *Config, opts ...Option) (*Executor, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	e := &Executor{
		runner:         runner,
		events:         events,
		config:         config,
		artifactWriter: NewArtifactWriter(config.Artifacts),
		newRunID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = NewLogger(ParseLogLevel(config.Verbosity))
	}
	return e, nil
}

// Run executes the task and always returns a summary. The error is non-nil
// when the agent raised or a budget constraint stopped the run; a task the
// agent failed to solve is reported through the summary status only.
func (e *Executor) Run(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:     e.newRunID(),
		Task:      e.config.Task,
		URL:       e.config.URL,
		Status:    StatusRunning,
		StartTime: time.Now(),
	}
	e.logger.Header("Surfer: " + e.config.Task)
	debugLog.Infof("starting headless run %s: %s", summary.RunID, e.config.Task)

	runCtx, limits := startBudget(ctx, e.config.Constraints)
	defer limits.release()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		handle := func(ev *types.AgentEvent) {
			e.logger.Event(ev)
			if ev.Type == types.EventTypeTokenUsage && ev.TokenUsage != nil {
				limits.spend(ev.TokenUsage.TotalTokens)
			}
		}

		events := e.events
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				handle(ev)
			case <-stop:
				for {
					select {
					case ev, ok := <-events:
						if !ok {
							return
						}
						handle(ev)
					default:
						return
					}
				}
			}
		}
	}()

	out, err := e.runner.Run(runCtx, e.config.Task, e.config.URL)
	close(stop)
	<-done

	if violation := limits.settle(runCtx, ctx); violation != nil {
		err = violation
	}

	return e.finalize(summary, out, limits.spent(), err)
}

// finalize completes the summary and generates artifacts. tokens is the
// count seen on token usage events, used when the runner returned no output.
func (e *Executor) finalize(summary *RunSummary, out *agent.Output, tokens int, runErr error) (*RunSummary, error) {
	summary.EndTime = time.Now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime)
	summary.Output = out
	summary.Metrics = metricsFromOutput(out, summary.Duration)
	if out == nil {
		summary.Metrics.TokensUsed = tokens
	}

	if runErr == nil && out == nil {
		runErr = errors.New("runner returned no output")
	}

	switch {
	case runErr != nil:
		summary.Status = StatusError
		summary.Error = runErr.Error()
		if out != nil {
			summary.Answer = out.Answer
		}
	case out.Success:
		summary.Status = StatusSuccess
		summary.Answer = out.Answer
	default:
		summary.Status = StatusFailed
		summary.Answer = out.Answer
	}

	if e.config.Artifacts.Enabled {
		dir, err := e.artifactWriter.WriteAll(summary)
		if err != nil {
			e.logger.Warningf("failed to write artifacts: %v", err)
			debugLog.Warnf("failed to write artifacts for run %s: %v", summary.RunID, err)
		} else {
			e.logger.Infof("Artifacts written to %s", dir)
		}
	}

	e.logger.Summary(summary)
	debugLog.Infof("headless run %s completed: %s (duration: %s)", summary.RunID, summary.Status, summary.Duration)
	return summary, runErr
}
