// Package llm provides abstractions for LLM provider integration.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("OPENAI_API_KEY"),
//	    openai.WithModel("gpt-4o"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	var out actions.StepOutput
//	_, err = llm.StructuredCompletionWith(ctx, provider, messages, func(raw []byte) error {
//	    parsed, err := actions.DecodeStepOutput(raw)
//	    if err != nil {
//	        return err
//	    }
//	    out = *parsed
//	    return nil
//	})
package llm

import (
	"context"

	"github.com/entrhq/surfer/pkg/types"
)

// ModelCloner is an optional interface that LLM providers can implement to
// support lightweight per-call model overrides without constructing a full
// second provider. The returned provider shares credentials and transport with
// the original but directs calls to the given model.
type ModelCloner interface {
	CloneWithModel(model string) Provider
}

// ForModel returns p redirected to model when p supports ModelCloner. An
// empty model, or the model p already uses, returns p unchanged.
func ForModel(p Provider, model string) Provider {
	if model == "" || model == p.GetModel() {
		return p
	}
	if cloner, ok := p.(ModelCloner); ok {
		return cloner.CloneWithModel(model)
	}
	return p
}

// Provider defines the interface for LLM integrations.
//
// Providers handle API communication only. Conversation state, structured
// decoding and usage accounting live above this interface so a provider
// can be reused by the agent loop, the completion validator and the page
// categorizer alike.
type Provider interface {
	// Complete sends messages to the LLM and returns the assistant message.
	// Implementations populate Message.Usage when the API reports it.
	Complete(ctx context.Context, messages []*types.Message, opts ...CompletionOption) (*types.Message, error)

	// GetModelInfo returns information about the LLM model being used.
	GetModelInfo() *types.ModelInfo

	// GetModel returns the model name being used.
	GetModel() string
}

// CompletionOptions are per-call request settings.
type CompletionOptions struct {
	Temperature *float64
	MaxTokens   int
	JSON        bool
}

// CompletionOption configures a single Complete call.
type CompletionOption func(*CompletionOptions)

// WithJSONResponse asks the provider to constrain output to a JSON object.
func WithJSONResponse() CompletionOption {
	return func(o *CompletionOptions) {
		o.JSON = true
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) CompletionOption {
	return func(o *CompletionOptions) {
		o.Temperature = &t
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) CompletionOption {
	return func(o *CompletionOptions) {
		o.MaxTokens = n
	}
}

// ApplyOptions folds opts into a CompletionOptions value.
func ApplyOptions(opts ...CompletionOption) CompletionOptions {
	var o CompletionOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
