// Package executor runs single browser actions and owns the
// consecutive-failure policy of a run.
package executor

import (
	"context"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/entrhq/surfer/pkg/actions"
	"github.com/entrhq/surfer/pkg/browser"
	"github.com/entrhq/surfer/pkg/logging"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("executor")
	if err != nil {
		debugLog.Warnf("Failed to initialize executor logger, using stderr fallback: %v", err)
	}
}

// DefaultMaxConsecutiveFailures is used when no limit is configured.
const DefaultMaxConsecutiveFailures = 3

// ActFunc executes one action against the environment.
type ActFunc func(ctx context.Context, action actions.Action) (*browser.Observation, error)

// ExecutionResult is the outcome of one executed action. It is not modified
// after creation.
type ExecutionResult struct {
	Input   actions.Action       `json:"-" yaml:"-"`
	Output  *browser.Observation `json:"-" yaml:"-"`
	Success bool                 `json:"success" yaml:"success"`
	Message string               `json:"message" yaml:"message"`
}

// MarshalJSON encodes the result with its action in wire form and the URL
// of the resulting page.
func (r *ExecutionResult) MarshalJSON() ([]byte, error) {
	var wire struct {
		Action  jsoniter.RawMessage `json:"action,omitempty"`
		Success bool                `json:"success"`
		Message string              `json:"message"`
		URL     string              `json:"url,omitempty"`
	}
	if r.Input != nil {
		encoded, err := actions.EncodeAction(r.Input)
		if err != nil {
			return nil, err
		}
		wire.Action = encoded
	}
	wire.Success = r.Success
	wire.Message = r.Message
	if r.Output != nil {
		wire.URL = r.Output.Metadata.URL
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(wire)
}

// SafeExecutor wraps an ActFunc with failure counting. It is owned by a
// single agent loop.
type SafeExecutor struct {
	act                    ActFunc
	failFast               bool
	maxConsecutiveFailures int
	verbosity              Verbosity

	consecutiveFailures int
}

// Option configures a SafeExecutor.
type Option func(*SafeExecutor)

// WithFailFast makes every failed action return an *ActionFailedError.
func WithFailFast(failFast bool) Option {
	return func(e *SafeExecutor) {
		e.failFast = failFast
	}
}

// WithMaxConsecutiveFailures sets how many back-to-back failures are
// tolerated before Execute reports a fatal error.
func WithMaxConsecutiveFailures(n int) Option {
	return func(e *SafeExecutor) {
		e.maxConsecutiveFailures = n
	}
}

// WithVerbosity selects how failures are rendered into result messages.
func WithVerbosity(v Verbosity) Option {
	return func(e *SafeExecutor) {
		e.verbosity = v
	}
}

// New creates an executor around act.
func New(act ActFunc, opts ...Option) *SafeExecutor {
	e := &SafeExecutor{
		act:                    act,
		maxConsecutiveFailures: DefaultMaxConsecutiveFailures,
		verbosity:              VerbosityAgent,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxConsecutiveFailures < 0 {
		e.maxConsecutiveFailures = 0
	}
	return e
}

// Execute runs action. A failed action always yields a failed result. The
// returned error is non-nil only when the run must stop: the failure budget
// is exceeded (*MaxConsecutiveFailuresError, regardless of fail-fast), the
// executor is fail-fast (*ActionFailedError), or ctx is done.
func (e *SafeExecutor) Execute(ctx context.Context, action actions.Action) (*ExecutionResult, error) {
	obs, err := e.act(ctx, action)
	if err == nil {
		e.consecutiveFailures = 0
		return &ExecutionResult{
			Input:   action,
			Output:  obs,
			Success: true,
			Message: action.ExecutionMessage(),
		}, nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if ctx.Err() != nil {
			return nil, err
		}
	}

	e.consecutiveFailures++
	result := &ExecutionResult{
		Input:   action,
		Success: false,
		Message: FormatError(err, e.verbosity),
	}
	debugLog.Warnf("action '%s' failed (%d consecutive): %v", action.Type(), e.consecutiveFailures, err)

	if e.consecutiveFailures > e.maxConsecutiveFailures {
		return result, &MaxConsecutiveFailuresError{
			Max:     e.maxConsecutiveFailures,
			Count:   e.consecutiveFailures,
			LastErr: err,
		}
	}
	if e.failFast {
		return result, &ActionFailedError{Action: action.Type(), Err: err}
	}
	return result, nil
}

// Reset zeroes the failure counter.
func (e *SafeExecutor) Reset() {
	e.consecutiveFailures = 0
}

// ConsecutiveFailures returns the current failure streak.
func (e *SafeExecutor) ConsecutiveFailures() int {
	return e.consecutiveFailures
}

// MaxConsecutiveFailures returns the configured limit.
func (e *SafeExecutor) MaxConsecutiveFailures() int {
	return e.maxConsecutiveFailures
}

// MaxConsecutiveFailuresError is returned once the failure streak exceeds
// the configured limit.
type MaxConsecutiveFailuresError struct {
	Max     int
	Count   int
	LastErr error
}

func (e *MaxConsecutiveFailuresError) Error() string {
	return fmt.Sprintf("too many consecutive failures (%d > %d): %v", e.Count, e.Max, e.LastErr)
}

func (e *MaxConsecutiveFailuresError) Unwrap() error {
	return e.LastErr
}

// ActionFailedError is returned by a fail-fast executor for any failed action.
type ActionFailedError struct {
	Action actions.ActionType
	Err    error
}

func (e *ActionFailedError) Error() string {
	return fmt.Sprintf("action '%s' failed: %v", e.Action, e.Err)
}

func (e *ActionFailedError) Unwrap() error {
	return e.Err
}
