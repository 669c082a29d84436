package llm

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"

	"github.com/entrhq/surfer/pkg/types"
)

// RateLimitedProvider spaces out completions of the wrapped provider.
// Batch runs share one limiter across agents so the combined request rate
// stays within the account quota.
type RateLimitedProvider struct {
	Provider
	limiter *rate.Limiter
}

// NewRateLimitedProvider limits p to requestsPerMinute. A non-positive rate
// returns p unchanged.
func NewRateLimitedProvider(p Provider, requestsPerMinute int) Provider {
	if requestsPerMinute <= 0 {
		return p
	}
	interval := time.Minute / time.Duration(requestsPerMinute)
	return &RateLimitedProvider{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Complete waits for a token, then forwards to the wrapped provider.
func (p *RateLimitedProvider) Complete(ctx context.Context, messages []*types.Message, opts ...CompletionOption) (*types.Message, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return p.Provider.Complete(ctx, messages, opts...)
}

// CloneWithModel shares the limiter with the clone.
func (p *RateLimitedProvider) CloneWithModel(model string) Provider {
	if cloner, ok := p.Provider.(ModelCloner); ok {
		return &RateLimitedProvider{Provider: cloner.CloneWithModel(model), limiter: p.limiter}
	}
	return p
}

// Close closes the wrapped provider when it holds a connection.
func (p *RateLimitedProvider) Close() error {
	if c, ok := p.Provider.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
