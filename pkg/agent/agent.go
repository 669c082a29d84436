// Package agent implements the web-browsing agent loop.
//
// An Agent repeatedly renders its trajectory into a conversation, asks the
// model for the next step, executes the selected browser actions and
// validates completion claims:
//
//	env, _ := browser.New(browser.DefaultConfig())
//	ag, err := agent.New(provider, env, agent.WithConfig(cfg.Agent))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := ag.Run(ctx, "find the price of the cheapest Dune paperback", "https://books.example")
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/surfer/pkg/actions"
	agentctx "github.com/entrhq/surfer/pkg/agent/context"
	"github.com/entrhq/surfer/pkg/agent/conversation"
	"github.com/entrhq/surfer/pkg/agent/executor"
	"github.com/entrhq/surfer/pkg/agent/perception"
	"github.com/entrhq/surfer/pkg/agent/prompts"
	"github.com/entrhq/surfer/pkg/agent/trajectory"
	"github.com/entrhq/surfer/pkg/agent/validator"
	"github.com/entrhq/surfer/pkg/browser"
	"github.com/entrhq/surfer/pkg/config"
	"github.com/entrhq/surfer/pkg/llm"
	"github.com/entrhq/surfer/pkg/logging"
	"github.com/entrhq/surfer/pkg/types"
)

var agentDebugLog *logging.Logger

func init() {
	var err error
	agentDebugLog, err = logging.NewLogger("agent")
	if err != nil {
		agentDebugLog.Warnf("Failed to initialize agent logger, using stderr fallback: %v", err)
	}
}

// ErrScreenshotsDisabled is returned by New when screenshots are requested
// in the conversation but the environment does not capture them.
var ErrScreenshotsDisabled = errors.New("cannot include screenshots when the browser does not capture them")

// Agent solves one task at a time on a browser environment. Run calls are
// serialized; use separate agents for concurrent tasks.
type Agent struct {
	provider llm.Provider
	tracer   *llm.UsageTracer
	env      browser.Environment
	cfg      config.AgentConfig

	perceiver      perception.Perceiver
	prompt         prompts.Builder
	validator      validator.Validator
	validatorModel string
	categorizer    perception.Categorizer
	counter        conversation.TokenCounter
	events         chan<- *types.AgentEvent

	raise    config.RaiseCondition
	strategy agentctx.Strategy
	conv     *conversation.Buffer
	history  *trajectory.History
	executor *executor.SafeExecutor

	runMu sync.Mutex
	start time.Time
}

// Option configures an Agent.
type Option func(*Agent)

// WithConfig sets the loop configuration. Defaults to config.DefaultAgentConfig.
func WithConfig(cfg config.AgentConfig) Option {
	return func(a *Agent) {
		a.cfg = cfg
	}
}

// WithPerceiver sets how observations are rendered.
func WithPerceiver(p perception.Perceiver) Option {
	return func(a *Agent) {
		a.perceiver = p
	}
}

// WithPromptBuilder sets the system and task prompt builder.
func WithPromptBuilder(b prompts.Builder) Option {
	return func(a *Agent) {
		a.prompt = b
	}
}

// WithValidator replaces the LLM completion validator.
func WithValidator(v validator.Validator) Option {
	return func(a *Agent) {
		a.validator = v
	}
}

// WithValidatorModel runs the default validator on a different model of the
// same provider.
func WithValidatorModel(model string) Option {
	return func(a *Agent) {
		a.validatorModel = model
	}
}

// WithTokenCounter sets the conversation token counter. Defaults to the
// tiktoken tokenizer.
func WithTokenCounter(c conversation.TokenCounter) Option {
	return func(a *Agent) {
		a.counter = c
	}
}

// WithEventChannel streams run events to ch. Sends block until received or
// the run context is done.
func WithEventChannel(ch chan<- *types.AgentEvent) Option {
	return func(a *Agent) {
		a.events = ch
	}
}

// WithCategorizer labels every observation with a page category.
func WithCategorizer(c perception.Categorizer) Option {
	return func(a *Agent) {
		a.categorizer = c
	}
}

// New creates an agent. provider calls are traced for usage reporting.
func New(provider llm.Provider, env browser.Environment, opts ...Option) (*Agent, error) {
	if provider == nil {
		return nil, fmt.Errorf("LLM provider is required")
	}
	if env == nil {
		return nil, fmt.Errorf("browser environment is required")
	}

	a := &Agent{
		env: env,
		cfg: config.DefaultAgentConfig(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent config: %w", err)
	}
	if a.cfg.IncludeScreenshot && !env.ScreenshotsEnabled() {
		return nil, ErrScreenshotsDisabled
	}

	a.tracer = llm.NewUsageTracer()
	a.provider = llm.NewTracingProvider(provider, a.tracer)

	if a.perceiver == nil {
		a.perceiver = perception.NewDefault()
	}
	if a.prompt == nil {
		a.prompt = prompts.NewDefault(a.cfg.MaxActionsPerStep).WithCustomInstructions(a.cfg.CustomInstructions)
	}
	if a.validator == nil {
		a.validator = validator.New(llm.ForModel(a.provider, a.validatorModel), a.perceiver)
	}
	if a.categorizer == nil && a.cfg.CategorizePages {
		a.categorizer = perception.NewLLMCategorizer(a.provider)
	}

	historyType, _ := agentctx.ParseHistoryType(a.cfg.HistoryType)
	strategy, err := agentctx.NewStrategy(historyType)
	if err != nil {
		return nil, err
	}
	a.strategy = strategy
	a.raise, _ = config.ParseRaiseCondition(string(a.cfg.RaiseCondition))
	verbosity, _ := executor.ParseVerbosity(a.cfg.ErrorVerbosity)

	a.conv = conversation.New(a.cfg.MaxHistoryTokens, a.counter)
	a.history = trajectory.New(a.cfg.MaxErrorLength)
	a.executor = executor.New(a.act,
		executor.WithFailFast(a.raise == config.RaiseImmediately),
		executor.WithMaxConsecutiveFailures(a.cfg.MaxConsecutiveFailures),
		executor.WithVerbosity(verbosity),
	)

	agentDebugLog.Infof("agent created: model=%s history=%s raise=%s max_actions=%d",
		provider.GetModel(), historyType, a.raise, a.cfg.MaxActionsPerStep)
	return a, nil
}

// Config returns the effective loop configuration.
func (a *Agent) Config() config.AgentConfig {
	return a.cfg
}

// History exposes the trajectory of the current or last run.
func (a *Agent) History() *trajectory.History {
	return a.history
}

// Usage returns the token usage recorded since the last run started.
func (a *Agent) Usage() llm.Usage {
	return a.tracer.Usage()
}

// act runs an action on the environment and categorizes the resulting page.
// Categorization failures are logged and never fail the action.
func (a *Agent) act(ctx context.Context, action actions.Action) (*browser.Observation, error) {
	obs, err := a.env.Act(ctx, action)
	if err != nil || a.categorizer == nil || obs == nil {
		return obs, err
	}

	category, cerr := a.categorizer.Categorize(ctx, obs)
	if cerr != nil {
		agentDebugLog.Warnf("page categorization failed for %s: %v", obs.Metadata.URL, cerr)
		return obs, nil
	}
	obs.Category = category
	return obs, nil
}

// reset restores every per-run component to its post-construction state.
func (a *Agent) reset(ctx context.Context) error {
	a.conv.Reset()
	a.history.Reset()
	a.executor.Reset()
	a.tracer.Reset()
	if err := a.env.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset environment: %w", err)
	}
	return nil
}

// emit sends an event if a channel is configured. It gives up when ctx is
// done so a stalled consumer cannot block shutdown.
func (a *Agent) emit(ctx context.Context, event *types.AgentEvent) {
	if a.events == nil {
		return
	}
	select {
	case a.events <- event:
	case <-ctx.Done():
	}
}
