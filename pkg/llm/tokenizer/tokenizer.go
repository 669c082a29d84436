// Package tokenizer counts tokens for conversation budgeting.
package tokenizer

import (
	"fmt"
	"sync"

	"github.com/entrhq/surfer/pkg/types"
	"github.com/pkoukk/tiktoken-go"
)

const (
	// DefaultEncoding is the BPE used by the gpt-4 / gpt-4o family.
	DefaultEncoding = "cl100k_base"

	// MessageOverhead is the per-message framing cost (role markers, separators).
	MessageOverhead = 4

	// ImageTokens is the flat cost charged for an attached low-detail image.
	ImageTokens = 85
)

// Tokenizer counts tokens with tiktoken. A zero-value or fallback Tokenizer
// estimates four characters per token.
type Tokenizer struct {
	mu  sync.Mutex
	enc *tiktoken.Tiktoken
}

// New loads the default encoding.
func New() (*Tokenizer, error) {
	return NewWithEncoding(DefaultEncoding)
}

// NewWithEncoding loads the named tiktoken encoding.
func NewWithEncoding(encoding string) (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %s: %w", encoding, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// NewOrEstimate loads the default encoding and falls back to estimation
// when the BPE ranks cannot be fetched (offline runs, sandboxed tests).
func NewOrEstimate() *Tokenizer {
	tok, err := New()
	if err != nil {
		return &Tokenizer{}
	}
	return tok
}

// Estimating reports whether the tokenizer is using the character heuristic.
func (t *Tokenizer) Estimating() bool {
	return t.enc == nil
}

// CountTokens returns the token count of text.
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if t.enc == nil {
		return Estimate(text)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.enc.Encode(text, nil, nil))
}

// Truncate returns the longest prefix of text that fits in maxTokens.
func (t *Tokenizer) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if t.enc == nil {
		runes := []rune(text)
		if len(runes) <= maxTokens*4 {
			return text
		}
		return string(runes[:maxTokens*4])
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return t.enc.Decode(tokens[:maxTokens])
}

// CountMessageTokens returns the budgeted size of a single message.
func (t *Tokenizer) CountMessageTokens(msg *types.Message) int {
	n := MessageOverhead + t.CountTokens(msg.Content)
	if msg.HasImage() {
		n += ImageTokens
	}
	return n
}

// CountMessagesTokens sums CountMessageTokens over messages.
func (t *Tokenizer) CountMessagesTokens(messages []*types.Message) int {
	total := 0
	for _, m := range messages {
		total += t.CountMessageTokens(m)
	}
	return total
}

// Estimate approximates the token count at four characters per token.
func Estimate(text string) int {
	n := len([]rune(text))
	return (n + 3) / 4
}
