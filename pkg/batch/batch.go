// Package batch runs many browsing tasks concurrently. Every task gets its
// own agent and browser; nothing is shared between runs.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/surfer/pkg/executor/headless"
	"github.com/entrhq/surfer/pkg/logging"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("batch")
	if err != nil {
		debugLog.Warnf("Failed to initialize batch logger, using stderr fallback: %v", err)
	}
}

// ErrNoSummary is recorded for a task whose RunFunc returned neither a
// summary nor an error.
var ErrNoSummary = errors.New("runner returned no summary")

// Task is one entry of a task file.
type Task struct {
	ID   string `yaml:"id" json:"id"`
	Task string `yaml:"task" json:"task"`
	URL  string `yaml:"url,omitempty" json:"url,omitempty"`
}

// taskFile is the on-disk format: either a bare list or {tasks: [...]}.
type taskFile struct {
	Tasks []Task `yaml:"tasks"`
}

// LoadTasks reads a YAML task file. Tasks without an ID are numbered
// task-1, task-2, ... in file order.
func LoadTasks(path string) ([]Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}
	return ParseTasks(data)
}

// ParseTasks decodes task file contents.
func ParseTasks(data []byte) ([]Task, error) {
	var tasks []Task
	if err := yaml.Unmarshal(data, &tasks); err != nil {
		var file taskFile
		if ferr := yaml.Unmarshal(data, &file); ferr != nil {
			return nil, fmt.Errorf("failed to parse task file: %w", err)
		}
		tasks = file.Tasks
	}
	if len(tasks) == 0 {
		return nil, errors.New("task file contains no tasks")
	}

	seen := make(map[string]bool, len(tasks))
	for i := range tasks {
		if tasks[i].Task == "" {
			return nil, fmt.Errorf("task %d: task description is required", i+1)
		}
		if tasks[i].ID == "" {
			tasks[i].ID = fmt.Sprintf("task-%d", i+1)
		}
		if strings.ContainsAny(tasks[i].ID, `/\`) || tasks[i].ID == "." || tasks[i].ID == ".." {
			return nil, fmt.Errorf("task %d: id %q is not a valid directory name", i+1, tasks[i].ID)
		}
		if seen[tasks[i].ID] {
			return nil, fmt.Errorf("task %d: duplicate id %q", i+1, tasks[i].ID)
		}
		seen[tasks[i].ID] = true
	}
	return tasks, nil
}

// RunFunc runs one task to completion. Implementations must build their own
// agent and browser.
type RunFunc func(ctx context.Context, task Task) (*headless.RunSummary, error)

// Result is the outcome of one task.
type Result struct {
	Task    Task                 `json:"task"`
	Summary *headless.RunSummary `json:"summary,omitempty"`
	Error   string               `json:"error,omitempty"`

	err error
}

// Err returns the error the task failed with, if any.
func (r Result) Err() error {
	return r.err
}

// Succeeded reports whether the agent solved the task.
func (r Result) Succeeded() bool {
	return r.err == nil && r.Summary != nil && r.Summary.Status == headless.StatusSuccess
}

// Runner executes tasks with bounded concurrency.
type Runner struct {
	run         RunFunc
	concurrency int
	failFast    bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithFailFast cancels the remaining tasks once one returns an error.
func WithFailFast(failFast bool) Option {
	return func(r *Runner) {
		r.failFast = failFast
	}
}

// NewRunner creates a runner executing at most concurrency tasks at once.
func NewRunner(run RunFunc, concurrency int, opts ...Option) (*Runner, error) {
	if run == nil {
		return nil, errors.New("run function is required")
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}
	r := &Runner{run: run, concurrency: concurrency}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run executes every task and returns results in task order. The returned
// error is the first task error when fail-fast is enabled, or the context
// error if ctx ended before every task was started.
func (r *Runner) Run(ctx context.Context, tasks []Task) ([]Result, error) {
	results := make([]Result, len(tasks))
	for i, t := range tasks {
		results[i].Task = t
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	debugLog.Infof("starting batch of %d tasks with concurrency %d", len(tasks), r.concurrency)
	start := time.Now()

	for i := range tasks {
		if groupCtx.Err() != nil {
			break
		}
		idx := i
		g.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				results[idx].err = err
				results[idx].Error = err.Error()
				return nil
			}

			summary, err := r.run(groupCtx, tasks[idx])
			if summary == nil && err == nil {
				err = ErrNoSummary
			}
			results[idx].Summary = summary
			if err != nil {
				debugLog.Warnf("task %s failed: %v", tasks[idx].ID, err)
				results[idx].err = err
				results[idx].Error = err.Error()
				if r.failFast {
					return fmt.Errorf("task %s: %w", tasks[idx].ID, err)
				}
				return nil
			}
			debugLog.Infof("task %s finished: %s", tasks[idx].ID, summary.Status)
			return nil
		})
	}

	err := g.Wait()
	for i := range results {
		if results[i].Summary == nil && results[i].err == nil {
			cause := ctx.Err()
			if cause == nil {
				cause = context.Canceled
			}
			results[i].err = cause
			results[i].Error = cause.Error()
		}
	}
	if err == nil {
		err = ctx.Err()
	}

	debugLog.Infof("batch finished in %s", time.Since(start))
	return results, err
}

// Stats counts results by outcome.
type Stats struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Errored   int `json:"errored"`
	Tokens    int `json:"tokens"`
}

// Summarize aggregates results.
func Summarize(results []Result) Stats {
	s := Stats{Total: len(results)}
	for _, r := range results {
		if r.Summary != nil {
			s.Tokens += r.Summary.Metrics.TokensUsed
		}
		switch {
		case r.err != nil:
			s.Errored++
		case r.Succeeded():
			s.Succeeded++
		default:
			s.Failed++
		}
	}
	return s
}
