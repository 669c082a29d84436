package headless

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ViolationType names the run budget that was exhausted.
type ViolationType string

const (
	ViolationTokenLimit ViolationType = "token_limit"
	ViolationTimeout    ViolationType = "timeout"
)

// ConstraintViolation is returned by Executor.Run when a budget from
// ConstraintConfig stopped the run before the agent finished.
type ConstraintViolation struct {
	Type       ViolationType
	TokensUsed int
	Elapsed    time.Duration

	limit string
}

func (v *ConstraintViolation) Error() string {
	switch v.Type {
	case ViolationTokenLimit:
		return fmt.Sprintf("run stopped: %d tokens used, budget is %s", v.TokensUsed, v.limit)
	default:
		return fmt.Sprintf("run stopped after %s, time budget is %s", v.Elapsed.Round(time.Millisecond), v.limit)
	}
}

// budget counts the tokens reported by token usage events and owns the run
// context. Crossing MaxTokens cancels that context; the time limit is its
// deadline. Only the first violation is kept.
type budget struct {
	limits ConstraintConfig
	start  time.Time
	cancel context.CancelFunc

	mu       sync.Mutex
	tokens   int
	exceeded *ConstraintViolation
}

// startBudget derives the run context from parent and starts the clock.
func startBudget(parent context.Context, limits ConstraintConfig) (context.Context, *budget) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if limits.Timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, limits.Timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	return ctx, &budget{limits: limits, start: time.Now(), cancel: cancel}
}

// spend adds tokens and cancels the run the first time MaxTokens is passed.
func (b *budget) spend(tokens int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens += tokens
	if b.exceeded != nil || b.limits.MaxTokens <= 0 || b.tokens <= b.limits.MaxTokens {
		return
	}
	b.exceeded = &ConstraintViolation{
		Type:       ViolationTokenLimit,
		TokensUsed: b.tokens,
		Elapsed:    time.Since(b.start),
		limit:      fmt.Sprintf("%d", b.limits.MaxTokens),
	}
	b.cancel()
}

// settle is called once the runner has returned. A deadline on ctx that the
// parent did not cause counts as a timeout. It returns the violation that
// stopped the run, if any.
func (b *budget) settle(ctx, parent context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.exceeded == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		b.exceeded = &ConstraintViolation{
			Type:       ViolationTimeout,
			TokensUsed: b.tokens,
			Elapsed:    time.Since(b.start),
			limit:      b.limits.Timeout.String(),
		}
	}
	if b.exceeded == nil {
		return nil
	}
	return b.exceeded
}

// spent returns the tokens counted so far.
func (b *budget) spent() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}

func (b *budget) release() {
	b.cancel()
}
