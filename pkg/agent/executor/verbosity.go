package executor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/surfer/pkg/browser"
)

// Verbosity controls how much of an error reaches the model.
type Verbosity string

const (
	// VerbosityAgent shows only the model-facing message of action errors.
	VerbosityAgent Verbosity = "agent"

	// VerbosityDeveloper shows the full wrapped error chain.
	VerbosityDeveloper Verbosity = "developer"
)

// ParseVerbosity converts a configuration value.
func ParseVerbosity(s string) (Verbosity, error) {
	switch Verbosity(strings.ToLower(strings.TrimSpace(s))) {
	case VerbosityAgent, "":
		return VerbosityAgent, nil
	case VerbosityDeveloper:
		return VerbosityDeveloper, nil
	default:
		return "", fmt.Errorf("unknown error verbosity %q (expected %q or %q)", s, VerbosityAgent, VerbosityDeveloper)
	}
}

// FormatError renders err for the trajectory.
func FormatError(err error, v Verbosity) string {
	if err == nil {
		return ""
	}
	var ae *browser.ActionError
	if errors.As(err, &ae) {
		if v == VerbosityDeveloper {
			return ae.DeveloperMessage()
		}
		return ae.AgentMessage()
	}
	return err.Error()
}
