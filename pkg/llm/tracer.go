package llm

import (
	"context"
	"sync"
	"time"

	"github.com/entrhq/surfer/pkg/types"
)

// CallRecord captures one traced completion.
type CallRecord struct {
	Model    string            `json:"model" yaml:"model"`
	Usage    *types.TokenUsage `json:"usage,omitempty" yaml:"usage,omitempty"`
	Duration time.Duration     `json:"duration" yaml:"duration"`
	Error    string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// Usage is a snapshot of everything a tracer has recorded.
type Usage struct {
	Total types.TokenUsage `json:"total" yaml:"total"`
	Calls []CallRecord     `json:"calls" yaml:"calls"`
}

// UsageTracer accumulates token usage across completions. It is safe for
// concurrent use so several providers may share one tracer.
type UsageTracer struct {
	mu    sync.Mutex
	total types.TokenUsage
	calls []CallRecord
}

// NewUsageTracer creates an empty tracer.
func NewUsageTracer() *UsageTracer {
	return &UsageTracer{}
}

// Record adds one call to the tracer.
func (t *UsageTracer) Record(rec CallRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total.Add(rec.Usage)
	t.calls = append(t.calls, rec)
}

// Usage returns a copy of the recorded usage.
func (t *UsageTracer) Usage() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Usage{
		Total: t.total,
		Calls: append([]CallRecord(nil), t.calls...),
	}
}

// Reset clears all recorded usage.
func (t *UsageTracer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = types.TokenUsage{}
	t.calls = nil
}

// TracingProvider records every completion of the wrapped provider.
type TracingProvider struct {
	Provider
	tracer *UsageTracer
}

// NewTracingProvider wraps p so that its usage is recorded on tracer.
func NewTracingProvider(p Provider, tracer *UsageTracer) *TracingProvider {
	return &TracingProvider{Provider: p, tracer: tracer}
}

// Tracer returns the tracer receiving usage.
func (p *TracingProvider) Tracer() *UsageTracer {
	return p.tracer
}

// Complete forwards to the wrapped provider and records the call.
func (p *TracingProvider) Complete(ctx context.Context, messages []*types.Message, opts ...CompletionOption) (*types.Message, error) {
	start := time.Now()
	resp, err := p.Provider.Complete(ctx, messages, opts...)

	rec := CallRecord{
		Model:    p.GetModel(),
		Duration: time.Since(start),
	}
	if err != nil {
		rec.Error = err.Error()
	} else if resp != nil && resp.Usage != nil {
		u := *resp.Usage
		rec.Usage = &u
	}
	p.tracer.Record(rec)
	return resp, err
}

// CloneWithModel keeps tracing on clones when the wrapped provider supports it.
func (p *TracingProvider) CloneWithModel(model string) Provider {
	if cloner, ok := p.Provider.(ModelCloner); ok {
		return NewTracingProvider(cloner.CloneWithModel(model), p.tracer)
	}
	return p
}
