// Package context renders the agent's trajectory into the conversation that
// is sent to the model on every step. Each HistoryType has its own Strategy.
package context

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/entrhq/surfer/pkg/agent/conversation"
	"github.com/entrhq/surfer/pkg/agent/perception"
	"github.com/entrhq/surfer/pkg/agent/trajectory"
	"github.com/entrhq/surfer/pkg/browser"
	"github.com/entrhq/surfer/pkg/logging"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("context")
	if err != nil {
		debugLog.Warnf("Failed to initialize context logger, using stderr fallback: %v", err)
	}
}

// HistoryType selects how past steps are rendered.
type HistoryType string

const (
	FullConversation               HistoryType = "full_conversation"
	ShortObservations              HistoryType = "short_observations"
	ShortObservationsWithRawData   HistoryType = "short_observations_with_raw_data"
	ShortObservationsWithShortData HistoryType = "short_observations_with_short_data"
	Compressed                     HistoryType = "compressed"
)

// DefaultHistoryType is used when no type is configured.
const DefaultHistoryType = ShortObservationsWithShortData

// HistoryTypes lists every supported type.
var HistoryTypes = []HistoryType{
	FullConversation,
	ShortObservations,
	ShortObservationsWithRawData,
	ShortObservationsWithShortData,
	Compressed,
}

// ParseHistoryType converts a configuration string. The empty string maps
// to DefaultHistoryType.
func ParseHistoryType(s string) (HistoryType, error) {
	if s == "" {
		return DefaultHistoryType, nil
	}
	for _, t := range HistoryTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown history type %q", s)
}

// RenderInput carries everything a strategy needs to rebuild the
// conversation for one step.
type RenderInput struct {
	SystemPrompt string
	TaskPrompt   string

	History   *trajectory.History
	Perceiver perception.Perceiver
	Buffer    *conversation.Buffer

	// IncludeScreenshot attaches observation screenshots to the rendered
	// observation messages.
	IncludeScreenshot bool
}

// Strategy rebuilds the conversation buffer from the trajectory.
type Strategy interface {
	// Name returns the history type the strategy implements.
	Name() HistoryType

	// Render resets in.Buffer and fills it for the next model call.
	Render(in *RenderInput)
}

// NewStrategy returns the strategy for t.
func NewStrategy(t HistoryType) (Strategy, error) {
	switch t {
	case FullConversation:
		return &FullConversationStrategy{}, nil
	case ShortObservations:
		return &ShortObservationsStrategy{}, nil
	case ShortObservationsWithRawData:
		return &ShortObservationsStrategy{data: rawData}, nil
	case ShortObservationsWithShortData:
		return &ShortObservationsStrategy{data: shortData}, nil
	case Compressed:
		return &CompressedStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown history type %q", t)
	}
}

// writePreamble resets the buffer and adds the system and task messages.
func writePreamble(in *RenderInput) {
	in.Buffer.Reset()
	in.Buffer.AddSystemMessage(in.SystemPrompt)
	in.Buffer.AddUserMessage(in.TaskPrompt, nil)
}

// writeSteps renders every step as the model's JSON reply followed by one
// user message per result. observe is called for each successful result.
func writeSteps(in *RenderInput, observe func(obs *browser.Observation)) {
	steps := in.History.Steps()
	if len(steps) == 0 {
		in.Buffer.AddUserMessage(in.History.StartRules(), nil)
		return
	}

	for _, step := range steps {
		if step.Output != nil {
			in.Buffer.AddAssistantMessage(encodeOutput(step.Output))
		}
		for _, result := range step.Results {
			in.Buffer.AddUserMessage(in.History.PerceiveStepResult(result, true), nil)
			if !result.Success || result.Output == nil || observe == nil {
				continue
			}
			observe(result.Output)
		}
	}
}

// writeLastObs adds the most recent successful observation, if any.
func writeLastObs(in *RenderInput) {
	obs := in.History.LastObs()
	if obs == nil {
		return
	}
	in.Buffer.AddUserMessage(in.Perceiver.Perceive(obs), screenshotOf(in, obs))
}

func screenshotOf(in *RenderInput, obs *browser.Observation) []byte {
	if !in.IncludeScreenshot || !obs.HasScreenshot() {
		return nil
	}
	return obs.Screenshot
}

func encodeOutput(output interface{}) string {
	raw, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(output)
	if err != nil {
		debugLog.Warnf("failed to encode step output: %v", err)
		return fmt.Sprintf("%v", output)
	}
	return strings.TrimSpace(string(raw))
}
