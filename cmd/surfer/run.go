package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/entrhq/surfer/pkg/agent"
	"github.com/entrhq/surfer/pkg/browser"
	"github.com/entrhq/surfer/pkg/config"
	"github.com/entrhq/surfer/pkg/executor/headless"
	"github.com/entrhq/surfer/pkg/executor/tui"
	"github.com/entrhq/surfer/pkg/llm"
	"github.com/entrhq/surfer/pkg/types"
)

type runOptions struct {
	url        string
	tui        bool
	jsonOutput bool
	copy       bool
	timeout    time.Duration
	maxTokens  int
	verbosity  string
	noArtifact bool
}

func newRunCmd(a *app) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [task...]",
		Short: "Solve a single task",
		Example: `  surfer run "find the opening hours of the Louvre"
  surfer run --url https://books.test "find the cheapest paperback of Dune"
  surfer run --tui --max-steps 30 "book a table for two tonight"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSingle(cmd.Context(), a.cfg, strings.Join(args, " "), opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.url, "url", "u", "", "page to start on")
	f.BoolVar(&opts.tui, "tui", false, "show an interactive progress view")
	f.BoolVar(&opts.jsonOutput, "json", false, "print the run summary as JSON")
	f.BoolVar(&opts.copy, "copy", false, "copy the answer to the clipboard")
	f.DurationVar(&opts.timeout, "timeout", 10*time.Minute, "stop the run after this long (0 disables)")
	f.IntVar(&opts.maxTokens, "max-tokens", 0, "stop the run after this many LLM tokens (0 disables)")
	f.StringVarP(&opts.verbosity, "verbosity", "v", "normal", "console verbosity: quiet, normal, verbose or debug")
	f.BoolVar(&opts.noArtifact, "no-artifacts", false, "do not write run artifacts")
	f.Int("max-steps", 0, "maximum number of agent steps")
	f.Bool("headless", true, "run the browser without a window")
	f.String("backend", "", "browser backend: chromedp or playwright")
	f.String("raise", "", "raise condition: immediately, retry or never")
	f.String("output-dir", "", "directory for run artifacts")

	return cmd
}

// session is one agent bound to its own browser.
type session struct {
	agent  *agent.Agent
	events chan *types.AgentEvent
}

func newSession(cfg *config.Config, provider llm.Provider) (*session, error) {
	env, err := browser.New(cfg.Browser)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser: %w", err)
	}
	events := make(chan *types.AgentEvent)
	ag, err := agent.New(provider, env,
		agent.WithConfig(cfg.Agent),
		agent.WithValidatorModel(cfg.LLM.ValidatorModel),
		agent.WithEventChannel(events),
	)
	if err != nil {
		return nil, err
	}
	return &session{agent: ag, events: events}, nil
}

func buildProvider(ctx context.Context, cfg *config.Config) (llm.Provider, func(), error) {
	provider, err := config.BuildProvider(ctx, cfg.LLM)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if c, ok := provider.(io.Closer); ok {
			_ = c.Close()
		}
	}
	return provider, release, nil
}

func headlessConfig(cfg *config.Config, task string, opts *runOptions) *headless.Config {
	hc := headless.DefaultConfig(task)
	hc.URL = opts.url
	hc.Constraints.Timeout = opts.timeout
	hc.Constraints.MaxTokens = opts.maxTokens
	hc.Artifacts = cfg.Artifacts
	if opts.noArtifact {
		hc.Artifacts.Enabled = false
	}
	hc.Verbosity = opts.verbosity
	if opts.jsonOutput {
		hc.Verbosity = "quiet"
	}
	return hc
}

func runSingle(ctx context.Context, cfg *config.Config, task string, opts *runOptions, w io.Writer) error {
	provider, release, err := buildProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	s, err := newSession(cfg, provider)
	if err != nil {
		return err
	}

	var answer string
	if opts.tui {
		answer, err = runTUI(ctx, s, task, opts, w)
	} else {
		answer, err = runHeadless(ctx, cfg, s, task, opts, w)
	}
	if err != nil {
		return err
	}

	if opts.copy && answer != "" {
		if cerr := clipboard.WriteAll(answer); cerr != nil {
			fmt.Fprintf(w, "Warning: could not copy answer: %v\n", cerr)
		}
	}
	return nil
}

func runHeadless(ctx context.Context, cfg *config.Config, s *session, task string, opts *runOptions, w io.Writer) (string, error) {
	hc := headlessConfig(cfg, task, opts)
	executor, err := headless.NewExecutor(s.agent, s.events, hc,
		headless.WithLogger(headless.NewLoggerTo(headless.ParseLogLevel(hc.Verbosity), w)))
	if err != nil {
		return "", err
	}

	summary, runErr := executor.Run(ctx)
	if opts.jsonOutput && summary != nil {
		data, err := encodeSummary(summary)
		if err != nil {
			return "", err
		}
		fmt.Fprintln(w, tui.HighlightJSON(string(data)))
	}
	if runErr != nil {
		return "", runErr
	}
	if summary.Status != headless.StatusSuccess {
		return "", &taskFailedError{answer: summary.Answer}
	}
	return summary.Answer, nil
}

func runTUI(ctx context.Context, s *session, task string, opts *runOptions, w io.Writer) (string, error) {
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	out, err := tui.NewExecutor(s.agent, s.events, tui.WithOutput(w)).Run(ctx, task, opts.url)
	if err != nil {
		return "", err
	}
	fmt.Fprintln(w, tui.RenderAnswer(out.Answer, out.Success))
	if !out.Success {
		return "", &taskFailedError{answer: out.Answer}
	}
	return out.Answer, nil
}

// taskFailedError makes the process exit non-zero when the agent gave up.
type taskFailedError struct {
	answer string
}

func (e *taskFailedError) Error() string {
	return "task not solved: " + e.answer
}

func isTaskFailed(err error) bool {
	var tf *taskFailedError
	return errors.As(err, &tf)
}
