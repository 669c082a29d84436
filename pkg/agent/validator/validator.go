// Package validator checks whether a completion claimed by the agent
// actually satisfies the task.
package validator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/surfer/pkg/actions"
	"github.com/entrhq/surfer/pkg/agent/perception"
	"github.com/entrhq/surfer/pkg/browser"
	"github.com/entrhq/surfer/pkg/llm"
	"github.com/entrhq/surfer/pkg/logging"
	"github.com/entrhq/surfer/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("validator")
	if err != nil {
		debugLog.Warnf("Failed to initialize validator logger, using stderr fallback: %v", err)
	}
}

// ErrValidatorUnavailable wraps every failure to obtain a verdict. It is
// fatal to the run.
var ErrValidatorUnavailable = errors.New("completion validator unavailable")

// ValidationResult is the verdict for one completion claim.
type ValidationResult struct {
	IsValid bool   `json:"is_valid"`
	Reason  string `json:"reason"`
}

// Validator judges completion claims.
type Validator interface {
	Validate(ctx context.Context, task string, completion *actions.CompletionAction, lastObs *browser.Observation) (ValidationResult, error)
}

// CompletionValidator asks an LLM acting as a strict judge. It keeps no
// state between calls.
type CompletionValidator struct {
	provider  llm.Provider
	perceiver perception.Perceiver
}

// New creates a validator. A nil perceiver uses perception.NewDefault.
func New(provider llm.Provider, perceiver perception.Perceiver) *CompletionValidator {
	if perceiver == nil {
		perceiver = perception.NewDefault()
	}
	return &CompletionValidator{provider: provider, perceiver: perceiver}
}

type verdict struct {
	IsValid *bool  `json:"is_valid"`
	Reason  string `json:"reason"`
}

// Validate returns the judge's verdict. Any provider or decoding failure is
// returned wrapped in ErrValidatorUnavailable.
func (v *CompletionValidator) Validate(ctx context.Context, task string, completion *actions.CompletionAction, lastObs *browser.Observation) (ValidationResult, error) {
	if v.provider == nil {
		return ValidationResult{}, fmt.Errorf("%w: no LLM provider", ErrValidatorUnavailable)
	}
	if completion == nil {
		return ValidationResult{}, fmt.Errorf("%w: no completion to validate", ErrValidatorUnavailable)
	}

	messages := []*types.Message{
		types.NewSystemMessage(systemPrompt),
		types.NewUserMessage(v.buildPrompt(task, completion, lastObs)),
	}

	var out verdict
	if _, err := llm.StructuredCompletion(ctx, v.provider, messages, &out, llm.WithTemperature(0)); err != nil {
		return ValidationResult{}, fmt.Errorf("%w: %v", ErrValidatorUnavailable, err)
	}
	if out.IsValid == nil {
		return ValidationResult{}, fmt.Errorf("%w: %v: verdict has no \"is_valid\" field", ErrValidatorUnavailable, llm.ErrMalformedResponse)
	}

	result := ValidationResult{IsValid: *out.IsValid, Reason: strings.TrimSpace(out.Reason)}
	if result.Reason == "" {
		result.Reason = "no reason given"
	}
	debugLog.Infof("completion verdict: valid=%t reason=%q", result.IsValid, result.Reason)
	return result, nil
}

const systemPrompt = `You are a strict verifier of web-browsing agents.
Given a task, the answer an agent claims solves it, and the last page the agent observed, decide whether the answer genuinely and completely satisfies the task.
Reject answers that are vague, partial, unsupported by the page, or that describe intent instead of a result.
Respond with JSON only: {"is_valid": true|false, "reason": "..."}.`

func (v *CompletionValidator) buildPrompt(task string, completion *actions.CompletionAction, lastObs *browser.Observation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task:\n%s\n\n", task)
	fmt.Fprintf(&b, "Claimed answer (success=%t):\n%s\n\n", completion.Success, completion.Answer)

	b.WriteString("Last observation:\n")
	if lastObs == nil {
		b.WriteString("No observation available.\n")
	} else {
		b.WriteString(v.perceiver.Perceive(lastObs))
		b.WriteString("\n")
		if lastObs.HasData() {
			b.WriteString(v.perceiver.PerceiveData(lastObs, false))
			b.WriteString("\n")
		}
	}
	return b.String()
}
