package browser

import (
	"errors"
	"fmt"

	"github.com/entrhq/surfer/pkg/actions"
)

var (
	// ErrNotStarted is returned when acting on an environment before Start.
	ErrNotStarted = errors.New("browser environment not started")

	// ErrElementNotFound is returned for an element ID absent from the
	// latest snapshot.
	ErrElementNotFound = errors.New("element not found")

	// ErrDomainNotAllowed is returned when a navigation target is outside
	// the configured allow list.
	ErrDomainNotAllowed = errors.New("domain not allowed")

	// ErrUnsupportedAction is returned for actions the environment cannot run.
	ErrUnsupportedAction = errors.New("unsupported action")
)

// ActionError is a failed browser action. Message is safe to show to the
// model; Err carries the driver-level cause.
type ActionError struct {
	Action  actions.ActionType
	Message string
	Err     error
}

func newActionError(a actions.Action, msg string, err error) *ActionError {
	return &ActionError{Action: a.Type(), Message: msg, Err: err}
}

func (e *ActionError) Error() string {
	return e.DeveloperMessage()
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// AgentMessage is the short, model-facing description of the failure.
func (e *ActionError) AgentMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("action '%s' failed", e.Action)
}

// DeveloperMessage includes the full wrapped cause.
func (e *ActionError) DeveloperMessage() string {
	if e.Err == nil {
		return fmt.Sprintf("%s action failed: %s", e.Action, e.AgentMessage())
	}
	return fmt.Sprintf("%s action failed: %s: %v", e.Action, e.AgentMessage(), e.Err)
}
