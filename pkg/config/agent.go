package config

import (
	"fmt"

	agentctx "github.com/entrhq/surfer/pkg/agent/context"
	"github.com/entrhq/surfer/pkg/agent/executor"
)

// RaiseCondition decides which failures end a run with an error.
type RaiseCondition string

const (
	// RaiseImmediately fails the run on the first failed action.
	RaiseImmediately RaiseCondition = "immediately"
	// RaiseRetry feeds failed actions back to the model and fails the run
	// only on fatal errors.
	RaiseRetry RaiseCondition = "retry"
	// RaiseNever converts every error into a failed output.
	RaiseNever RaiseCondition = "never"
)

// ParseRaiseCondition converts a configuration string. The empty string
// maps to RaiseRetry.
func ParseRaiseCondition(s string) (RaiseCondition, error) {
	switch RaiseCondition(s) {
	case "":
		return RaiseRetry, nil
	case RaiseImmediately, RaiseRetry, RaiseNever:
		return RaiseCondition(s), nil
	default:
		return "", fmt.Errorf("unknown raise condition %q (expected %q, %q or %q)", s, RaiseImmediately, RaiseRetry, RaiseNever)
	}
}

// AgentConfig tunes the agent loop.
type AgentConfig struct {
	MaxActionsPerStep      int            `mapstructure:"max_actions_per_step" yaml:"max_actions_per_step"`
	MaxHistoryTokens       int            `mapstructure:"max_history_tokens" yaml:"max_history_tokens"`
	MaxConsecutiveFailures int            `mapstructure:"max_consecutive_failures" yaml:"max_consecutive_failures"`
	MaxErrorLength         int            `mapstructure:"max_error_length" yaml:"max_error_length"`
	HistoryType            string         `mapstructure:"history_type" yaml:"history_type"`
	RaiseCondition         RaiseCondition `mapstructure:"raise_condition" yaml:"raise_condition"`
	IncludeScreenshot      bool           `mapstructure:"include_screenshot" yaml:"include_screenshot"`
	ErrorVerbosity         string         `mapstructure:"error_verbosity" yaml:"error_verbosity"`

	// CategorizePages labels each observation with a page category using an
	// extra model call.
	CategorizePages bool `mapstructure:"categorize_pages" yaml:"categorize_pages"`

	CustomInstructions string `mapstructure:"custom_instructions" yaml:"custom_instructions,omitempty"`
}

// DefaultAgentConfig returns the agent defaults.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		MaxActionsPerStep:      1,
		MaxHistoryTokens:       16000,
		MaxConsecutiveFailures: executor.DefaultMaxConsecutiveFailures,
		MaxErrorLength:         500,
		HistoryType:            string(agentctx.DefaultHistoryType),
		RaiseCondition:         RaiseRetry,
		ErrorVerbosity:         string(executor.VerbosityAgent),
	}
}

// Validate checks ranges and enumerations.
func (c AgentConfig) Validate() error {
	if c.MaxActionsPerStep <= 0 {
		return fmt.Errorf("max_actions_per_step must be positive, got %d", c.MaxActionsPerStep)
	}
	if c.MaxHistoryTokens < 0 {
		return fmt.Errorf("max_history_tokens must not be negative, got %d", c.MaxHistoryTokens)
	}
	if c.MaxConsecutiveFailures < 0 {
		return fmt.Errorf("max_consecutive_failures must not be negative, got %d", c.MaxConsecutiveFailures)
	}
	if c.MaxErrorLength < 0 {
		return fmt.Errorf("max_error_length must not be negative, got %d", c.MaxErrorLength)
	}
	if _, err := agentctx.ParseHistoryType(c.HistoryType); err != nil {
		return err
	}
	if _, err := ParseRaiseCondition(string(c.RaiseCondition)); err != nil {
		return err
	}
	if _, err := executor.ParseVerbosity(c.ErrorVerbosity); err != nil {
		return err
	}
	return nil
}
