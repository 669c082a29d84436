package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/entrhq/surfer/pkg/batch"
	"github.com/entrhq/surfer/pkg/config"
	"github.com/entrhq/surfer/pkg/executor/headless"
	"github.com/entrhq/surfer/pkg/llm"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ResultsFile is written next to the per-run artifact directories.
const ResultsFile = "batch.json"

type batchOptions struct {
	timeout   time.Duration
	maxTokens int
	failFast  bool
}

func newBatchCmd(a *app) *cobra.Command {
	opts := &batchOptions{}

	cmd := &cobra.Command{
		Use:   "batch <tasks.yaml>",
		Short: "Solve every task in a YAML task file",
		Long: `Runs the tasks of a task file concurrently, each with its own browser.

A task file is a list of entries with a task and an optional id and url:

  - id: dune
    task: find the cheapest paperback of Dune
    url: https://books.test
  - task: what is the weather in Lyon today`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := batch.LoadTasks(args[0])
			if err != nil {
				return err
			}
			return runBatch(cmd.Context(), a.cfg, tasks, opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.IntP("concurrency", "j", 0, "number of tasks run at once")
	f.DurationVar(&opts.timeout, "timeout", 10*time.Minute, "per-task timeout (0 disables)")
	f.IntVar(&opts.maxTokens, "max-tokens", 0, "per-task LLM token budget (0 disables)")
	f.BoolVar(&opts.failFast, "fail-fast", false, "cancel remaining tasks after the first error")
	f.Int("max-steps", 0, "maximum number of agent steps per task")
	f.String("raise", "", "raise condition: immediately, retry or never")
	f.String("output-dir", "", "directory for run artifacts")

	return cmd
}

func runBatch(ctx context.Context, cfg *config.Config, tasks []batch.Task, opts *batchOptions, w io.Writer) error {
	provider, release, err := buildProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	runner, err := batch.NewRunner(taskRunner(cfg, provider, opts), cfg.Batch.Concurrency, batch.WithFailFast(opts.failFast))
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Running %d tasks (concurrency %d)\n", len(tasks), cfg.Batch.Concurrency)
	results, runErr := runner.Run(ctx, tasks)
	for _, r := range results {
		fmt.Fprintln(w, formatResult(r))
	}

	stats := batch.Summarize(results)
	fmt.Fprintf(w, "\n%d tasks: %d succeeded, %d failed, %d errored (%d tokens)\n",
		stats.Total, stats.Succeeded, stats.Failed, stats.Errored, stats.Tokens)

	if cfg.Artifacts.Enabled {
		path := filepath.Join(cfg.Artifacts.Dir, ResultsFile)
		if err := writeBatchResults(path, results, stats); err != nil {
			fmt.Fprintf(w, "Warning: %v\n", err)
		} else {
			fmt.Fprintf(w, "Results written to %s\n", path)
		}
	}
	return runErr
}

// taskRunner builds a fresh browser and agent for every task. The provider,
// and with it the rate limiter, is shared.
func taskRunner(cfg *config.Config, provider llm.Provider, opts *batchOptions) batch.RunFunc {
	return func(ctx context.Context, task batch.Task) (*headless.RunSummary, error) {
		s, err := newSession(cfg, provider)
		if err != nil {
			return nil, err
		}

		hc := headless.DefaultConfig(task.Task)
		hc.URL = task.URL
		hc.Constraints.Timeout = opts.timeout
		hc.Constraints.MaxTokens = opts.maxTokens
		hc.Artifacts = cfg.Artifacts
		hc.Verbosity = "quiet"

		executor, err := headless.NewExecutor(s.agent, s.events, hc,
			headless.WithLogger(headless.NewLoggerTo(headless.LogLevelQuiet, io.Discard)),
			headless.WithRunID(func() string { return task.ID }),
		)
		if err != nil {
			return nil, err
		}
		return executor.Run(ctx)
	}
}

func formatResult(r batch.Result) string {
	switch {
	case r.Err() != nil:
		return fmt.Sprintf("✗ %s: error: %s", r.Task.ID, r.Error)
	case r.Succeeded():
		return fmt.Sprintf("✓ %s: %s", r.Task.ID, r.Summary.Answer)
	default:
		return fmt.Sprintf("✗ %s: %s", r.Task.ID, r.Summary.Answer)
	}
}

func writeBatchResults(path string, results []batch.Result, stats batch.Stats) error {
	data, err := json.MarshalIndent(struct {
		Stats   batch.Stats    `json:"stats"`
		Results []batch.Result `json:"results"`
	}{stats, results}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode batch results: %w", err)
	}
	return writeFile(path, data)
}

// encodeSummary renders a run summary without its full trajectory, which is
// already in the run artifacts.
func encodeSummary(summary *headless.RunSummary) ([]byte, error) {
	brief := *summary
	brief.Output = nil
	data, err := json.MarshalIndent(brief, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	return data, nil
}
