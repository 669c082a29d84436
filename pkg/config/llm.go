package config

import (
	"fmt"

	"github.com/entrhq/surfer/pkg/llm/gemini"
	"github.com/entrhq/surfer/pkg/llm/openai"
)

// LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// LLMConfig selects and configures the model.
type LLMConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model"`

	// ValidatorModel is optional; if empty, completion validation uses Model.
	ValidatorModel string `mapstructure:"validator_model" yaml:"validator_model,omitempty"`

	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key,omitempty"`

	// RequestsPerMinute limits model calls. Zero means unlimited.
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// DefaultLLMConfig returns the LLM defaults.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider: ProviderOpenAI,
		Model:    openai.DefaultModel,
	}
}

// Validate checks the provider name and limits.
func (c LLMConfig) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown provider %q (expected %q or %q)", c.Provider, ProviderOpenAI, ProviderGemini)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must not be negative, got %d", c.RequestsPerMinute)
	}
	return nil
}

// ModelOrDefault returns Model, or the provider's default model when unset.
func (c LLMConfig) ModelOrDefault() string {
	if c.Model != "" {
		return c.Model
	}
	if c.Provider == ProviderGemini {
		return gemini.DefaultModel
	}
	return openai.DefaultModel
}
