// Package conversation holds the token-budgeted message list sent to the LLM
// on every step.
package conversation

import (
	"github.com/entrhq/surfer/pkg/llm/tokenizer"
	"github.com/entrhq/surfer/pkg/logging"
	"github.com/entrhq/surfer/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("conversation")
	if err != nil {
		debugLog.Warnf("Failed to initialize conversation logger, using stderr fallback: %v", err)
	}
}

// TokenCounter counts the tokens of a text.
type TokenCounter interface {
	CountTokens(text string) int
}

// Truncator is implemented by counters that can cut text to a token budget.
type Truncator interface {
	Truncate(text string, maxTokens int) string
}

// Buffer is an ordered list of role-tagged messages whose total token count
// never exceeds maxTokens. When an addition overflows the budget the oldest
// messages are evicted first. System messages and the first user message,
// which carries the task, are never evicted. If the newest message alone
// still does not fit it is truncated, or dropped when even an empty message
// would overflow.
//
// A Buffer is owned by one agent loop and is not safe for concurrent use.
type Buffer struct {
	maxTokens int
	counter   TokenCounter

	messages []*types.Message
	costs    []int
	total    int
}

// New creates a buffer. maxTokens <= 0 disables the budget. A nil counter
// uses the default tiktoken tokenizer.
func New(maxTokens int, counter TokenCounter) *Buffer {
	if counter == nil {
		counter = tokenizer.NewOrEstimate()
	}
	return &Buffer{maxTokens: maxTokens, counter: counter}
}

// Reset removes every message.
func (b *Buffer) Reset() {
	b.messages = nil
	b.costs = nil
	b.total = 0
}

// AddSystemMessage appends a system message.
func (b *Buffer) AddSystemMessage(content string) {
	b.add(types.NewSystemMessage(content))
}

// AddUserMessage appends a user message with an optional image.
func (b *Buffer) AddUserMessage(content string, image []byte) {
	if len(image) > 0 {
		b.add(types.NewUserImageMessage(content, image))
		return
	}
	b.add(types.NewUserMessage(content))
}

// AddAssistantMessage appends an assistant message.
func (b *Buffer) AddAssistantMessage(content string) {
	b.add(types.NewAssistantMessage(content))
}

// Messages returns a copy of the current message list.
func (b *Buffer) Messages() []*types.Message {
	out := make([]*types.Message, len(b.messages))
	for i, m := range b.messages {
		out[i] = m.Clone()
	}
	return out
}

// TokenCount returns the budgeted size of the buffer.
func (b *Buffer) TokenCount() int {
	return b.total
}

// Len returns the number of messages.
func (b *Buffer) Len() int {
	return len(b.messages)
}

// MaxTokens returns the configured budget.
func (b *Buffer) MaxTokens() int {
	return b.maxTokens
}

func (b *Buffer) cost(m *types.Message) int {
	n := tokenizer.MessageOverhead + b.counter.CountTokens(m.Content)
	if m.HasImage() {
		n += tokenizer.ImageTokens
	}
	return n
}

func (b *Buffer) add(m *types.Message) {
	c := b.cost(m)
	b.messages = append(b.messages, m)
	b.costs = append(b.costs, c)
	b.total += c

	if b.maxTokens <= 0 {
		return
	}

	evicted := 0
	for b.total > b.maxTokens {
		i := b.oldestEvictable()
		if i < 0 {
			break
		}
		b.remove(i)
		evicted++
	}
	if evicted > 0 {
		debugLog.Debugf("evicted %d messages to stay within %d tokens (now %d)", evicted, b.maxTokens, b.total)
	}

	if b.total > b.maxTokens {
		b.fitNewest()
	}
}

// oldestEvictable returns the index of the oldest message other than the
// newest one that is neither a system message nor the task, or -1.
func (b *Buffer) oldestEvictable() int {
	seenTask := false
	for i := 0; i < len(b.messages)-1; i++ {
		switch b.messages[i].Role {
		case types.RoleSystem:
			continue
		case types.RoleUser:
			if !seenTask {
				seenTask = true
				continue
			}
		}
		return i
	}
	return -1
}

func (b *Buffer) remove(i int) {
	b.total -= b.costs[i]
	b.messages = append(b.messages[:i], b.messages[i+1:]...)
	b.costs = append(b.costs[:i], b.costs[i+1:]...)
}

// fitNewest shrinks the newest message until the buffer is within budget.
func (b *Buffer) fitNewest() {
	last := len(b.messages) - 1
	m := b.messages[last]
	available := b.maxTokens - (b.total - b.costs[last])

	if m.HasImage() && available < tokenizer.MessageOverhead+tokenizer.ImageTokens {
		m.Image = nil
	}
	contentBudget := available - tokenizer.MessageOverhead
	if m.HasImage() {
		contentBudget -= tokenizer.ImageTokens
	}

	if contentBudget < 0 {
		debugLog.Warnf("dropping %s message: %d tokens available", m.Role, available)
		b.remove(last)
		return
	}

	if m.Role == types.RoleSystem {
		debugLog.Warnf("system messages exceed the %d token budget, truncating the newest", b.maxTokens)
	}
	m.Content = b.truncate(m.Content, contentBudget)
	b.total -= b.costs[last]
	b.costs[last] = b.cost(m)
	b.total += b.costs[last]
	debugLog.Debugf("truncated newest %s message to %d tokens", m.Role, b.costs[last])

	// A counter that is not prefix-monotonic may still overshoot.
	for b.total > b.maxTokens && m.Content != "" {
		m.Content = string([]rune(m.Content)[:len([]rune(m.Content))/2])
		b.total -= b.costs[last]
		b.costs[last] = b.cost(m)
		b.total += b.costs[last]
	}
	if b.total > b.maxTokens {
		b.remove(last)
	}
}

func (b *Buffer) truncate(text string, maxTokens int) string {
	if t, ok := b.counter.(Truncator); ok {
		return t.Truncate(text, maxTokens)
	}
	runes := []rune(text)
	for len(runes) > 0 && b.counter.CountTokens(string(runes)) > maxTokens {
		runes = runes[:len(runes)*3/4]
	}
	return string(runes)
}
