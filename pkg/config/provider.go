package config

import (
	"context"
	"fmt"

	"google.golang.org/api/option"

	"github.com/entrhq/surfer/pkg/llm"
	"github.com/entrhq/surfer/pkg/llm/gemini"
	"github.com/entrhq/surfer/pkg/llm/openai"
)

// BuildProvider creates an LLM provider from cfg. Precedence is
// CLI flags > environment variables > config file > defaults; flags and
// SURFER_* variables are already folded into cfg by the caller, and the
// providers themselves fall back to OPENAI_API_KEY / GOOGLE_API_KEY.
//
// The Gemini provider holds a client connection; callers should close the
// result when it implements io.Closer.
func BuildProvider(ctx context.Context, cfg LLMConfig) (llm.Provider, error) {
	var (
		provider llm.Provider
		err      error
	)

	switch cfg.Provider {
	case ProviderOpenAI, "":
		opts := []openai.ProviderOption{openai.WithModel(cfg.ModelOrDefault())}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		provider, err = openai.NewProvider(cfg.APIKey, opts...)
	case ProviderGemini:
		opts := []gemini.ProviderOption{gemini.WithModel(cfg.ModelOrDefault())}
		if cfg.BaseURL != "" {
			opts = append(opts, gemini.WithClientOptions(option.WithEndpoint(cfg.BaseURL)))
		}
		provider, err = gemini.NewProvider(ctx, cfg.APIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	debugLog.Infof("built %s provider (model=%s, rpm=%d)", cfg.Provider, provider.GetModel(), cfg.RequestsPerMinute)
	return llm.NewRateLimitedProvider(provider, cfg.RequestsPerMinute), nil
}
