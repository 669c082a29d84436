package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/surfer/pkg/actions"
	agentctx "github.com/entrhq/surfer/pkg/agent/context"
	"github.com/entrhq/surfer/pkg/agent/executor"
	"github.com/entrhq/surfer/pkg/browser"
	"github.com/entrhq/surfer/pkg/config"
	"github.com/entrhq/surfer/pkg/llm"
	"github.com/entrhq/surfer/pkg/types"
)

// Run solves task, starting on url when it is not empty. The browser is
// started for the run and always closed before Run returns.
//
// Step-budget exhaustion and self-reported failure produce a failed Output
// with a nil error. Fatal errors are returned unless the raise condition is
// "never", in which case they become a failed Output as well.
func (a *Agent) Run(ctx context.Context, task, url string) (*Output, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	a.start = time.Now()
	if url != "" {
		task = fmt.Sprintf("Start on '%s' and %s", url, task)
	}

	out, err := a.run(ctx, task)
	if err != nil {
		agentDebugLog.Errorf("run failed: %v", err)
		a.emit(ctx, types.NewErrorEvent(a.history.Len(), err))
		if a.raise != config.RaiseNever {
			return nil, err
		}
		out = a.output(fmt.Sprintf("Failed due to %v", err), false)
	}

	a.emit(ctx, types.NewRunEndEvent(out.Steps(), out.Success, out.Answer))
	agentDebugLog.Infof("run finished: success=%t steps=%d duration=%s", out.Success, out.Steps(), out.Duration)
	return out, nil
}

func (a *Agent) run(ctx context.Context, task string) (*Output, error) {
	if err := a.env.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if cerr := a.env.Close(); cerr != nil {
			agentDebugLog.Warnf("failed to close browser: %v", cerr)
		}
	}()

	if err := a.reset(ctx); err != nil {
		return nil, err
	}
	a.emit(ctx, types.NewRunStartEvent(task))

	maxSteps := a.env.MaxSteps()
	for step := 0; step < maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		agentDebugLog.Infof("> step %d: looping in", step)
		a.emit(ctx, types.NewStepStartEvent(step))

		completion, err := a.step(ctx, step, task)
		if err != nil {
			return nil, err
		}
		if completion == nil {
			continue
		}

		if !completion.Success {
			agentDebugLog.Warnf("agent terminated early with failure: %s", completion.Answer)
			return a.output(completion.Answer, false), nil
		}

		verdict, err := a.validator.Validate(ctx, task, completion, a.lastObservation())
		if err != nil {
			return nil, err
		}
		a.emit(ctx, types.NewValidationEvent(step, verdict.IsValid, verdict.Reason))
		if verdict.IsValid {
			agentDebugLog.Infof("task completed successfully")
			return a.output(completion.Answer, true), nil
		}

		msg := fmt.Sprintf("Final validation failed: %s. Continuing...", verdict.Reason)
		agentDebugLog.Warnf("%s", msg)
		a.history.AddStep(&executor.ExecutionResult{
			Input:   completion,
			Output:  nil,
			Success: false,
			Message: msg,
		})
	}

	msg := fmt.Sprintf("Failed to solve task in %d steps", maxSteps)
	agentDebugLog.Warnf("%s", msg)
	return a.output(msg, false), nil
}

// step performs one iteration and returns the completion claim, if any.
func (a *Agent) step(ctx context.Context, step int, task string) (*actions.CompletionAction, error) {
	a.strategy.Render(&agentctx.RenderInput{
		SystemPrompt:      a.prompt.System(),
		TaskPrompt:        a.prompt.Task(task),
		History:           a.history,
		Perceiver:         a.perceiver,
		Buffer:            a.conv,
		IncludeScreenshot: a.cfg.IncludeScreenshot,
	})
	messages := a.conv.Messages()
	agentDebugLog.Debugf("trajectory history:\n%s", a.history.Perceive())

	output, err := a.callLLM(ctx, step, messages)
	if err != nil {
		return nil, err
	}
	a.history.AddOutput(output)
	a.emit(ctx, types.NewStepOutputEvent(step, output.String()))

	if output.IsCompletion() {
		return output.Completion, nil
	}

	for _, action := range output.GetActions(a.cfg.MaxActionsPerStep) {
		result, err := a.executor.Execute(ctx, action)
		if result != nil {
			a.history.AddStep(result)
			line := a.history.PerceiveStepResult(result, true)
			a.emit(ctx, types.NewActionResultEvent(step, string(action.Type()), result.Success, line))
			if result.Success {
				agentDebugLog.Infof("%s", line)
			} else {
				agentDebugLog.Warnf("%s", line)
			}
		}
		if err != nil {
			return nil, err
		}
		if !result.Success {
			break
		}
	}
	return nil, nil
}

// callLLM requests and decodes the next step output.
func (a *Agent) callLLM(ctx context.Context, step int, messages []*types.Message) (*actions.StepOutput, error) {
	a.emit(ctx, types.NewAPICallStartEvent(step, len(messages), a.conv.TokenCount()))

	var output *actions.StepOutput
	resp, err := llm.StructuredCompletionWith(ctx, a.provider, messages, func(raw []byte) error {
		parsed, err := actions.DecodeStepOutput(raw)
		if err != nil {
			return err
		}
		output = parsed
		return nil
	})
	a.emit(ctx, types.NewAPICallEndEvent(step))

	if resp != nil && resp.Usage != nil {
		a.emit(ctx, types.NewTokenUsageEvent(step, resp.Usage))
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("step %d: failed to get step output: %w", step, err)
	}
	return output, nil
}

// lastObservation is the newest observation recorded by the environment,
// falling back to the trajectory history.
func (a *Agent) lastObservation() *browser.Observation {
	if traj := a.env.Trajectory(); len(traj) > 0 {
		return traj[len(traj)-1]
	}
	return a.history.LastObs()
}
