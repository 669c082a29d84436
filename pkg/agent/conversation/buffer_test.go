package conversation

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/surfer/pkg/llm/tokenizer"
	"github.com/entrhq/surfer/pkg/types"
)

// wordCounter counts one token per whitespace-separated word.
type wordCounter struct{}

func (wordCounter) CountTokens(text string) int {
	return len(strings.Fields(text))
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("w ", n))
}

func TestBufferKeepsOrderWithinBudget(t *testing.T) {
	b := New(100, wordCounter{})
	b.AddSystemMessage("rules")
	b.AddUserMessage("task", nil)
	b.AddAssistantMessage(`{"actions":[]}`)

	msgs := b.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, types.RoleSystem, msgs[0].Role)
	assert.Equal(t, types.RoleUser, msgs[1].Role)
	assert.Equal(t, types.RoleAssistant, msgs[2].Role)
	assert.Equal(t, 3*tokenizer.MessageOverhead+3, b.TokenCount())
}

func TestBufferEvictsOldestNonSystem(t *testing.T) {
	// Each 6-word message costs 10 tokens.
	b := New(40, wordCounter{})
	b.AddSystemMessage(words(6))
	b.AddUserMessage("task "+words(5), nil)
	b.AddAssistantMessage("first " + words(5))
	b.AddUserMessage("second "+words(5), nil)
	require.Equal(t, 40, b.TokenCount())

	b.AddUserMessage("third "+words(5), nil)

	msgs := b.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, types.RoleSystem, msgs[0].Role)
	assert.True(t, strings.HasPrefix(msgs[1].Content, "task"))
	assert.True(t, strings.HasPrefix(msgs[2].Content, "second"))
	assert.True(t, strings.HasPrefix(msgs[3].Content, "third"))
	assert.Equal(t, 40, b.TokenCount())
}

func TestBufferKeepsTaskUnderPressure(t *testing.T) {
	b := New(60, wordCounter{})
	b.AddSystemMessage(words(6))
	b.AddUserMessage("task "+words(5), nil)
	for i := 0; i < 5; i++ {
		b.AddUserMessage("observation "+words(5), nil)
	}

	msgs := b.Messages()
	require.Len(t, msgs, 6)
	assert.Equal(t, types.RoleSystem, msgs[0].Role)
	assert.True(t, strings.HasPrefix(msgs[1].Content, "task"))
	for _, m := range msgs[2:] {
		assert.True(t, strings.HasPrefix(m.Content, "observation"))
	}
	assert.Equal(t, 60, b.TokenCount())
}

func TestBufferSystemMessagesOverflowingBudget(t *testing.T) {
	b := New(40, wordCounter{})
	b.AddSystemMessage(words(20))
	b.AddSystemMessage(words(20))
	b.AddUserMessage("task", nil)

	msgs := b.Messages()
	require.Len(t, msgs, 2, "the task cannot fit once system messages fill the budget")
	assert.Equal(t, types.RoleSystem, msgs[0].Role)
	assert.Equal(t, types.RoleSystem, msgs[1].Role)
	assert.Equal(t, 20, wordCounter{}.CountTokens(msgs[0].Content), "earlier system messages are never cut")
	assert.LessOrEqual(t, b.TokenCount(), 40)
}

func TestBufferTruncatesOversizedNewest(t *testing.T) {
	b := New(20, wordCounter{})
	b.AddSystemMessage(words(6))
	b.AddUserMessage(words(50), nil)

	msgs := b.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, 6, wordCounter{}.CountTokens(msgs[1].Content))
	assert.Equal(t, 20, b.TokenCount())
}

func TestBufferDropsMessageThatCannotFit(t *testing.T) {
	b := New(12, wordCounter{})
	b.AddSystemMessage(words(8))
	b.AddUserMessage("anything", nil)

	assert.Equal(t, 1, b.Len())
	assert.Equal(t, 12, b.TokenCount())
}

func TestBufferDropsImageBeforeText(t *testing.T) {
	b := New(30, wordCounter{})
	b.AddUserMessage("look at this", []byte{1, 2, 3})

	msgs := b.Messages()
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].HasImage())
	assert.Equal(t, "look at this", msgs[0].Content)
}

func TestBufferImageCost(t *testing.T) {
	b := New(0, wordCounter{})
	b.AddUserMessage("page", []byte{1})
	assert.Equal(t, tokenizer.MessageOverhead+1+tokenizer.ImageTokens, b.TokenCount())
	assert.True(t, b.Messages()[0].HasImage())
}

func TestBufferReset(t *testing.T) {
	b := New(50, wordCounter{})
	b.AddSystemMessage("rules")
	b.AddUserMessage("task", nil)
	b.Reset()

	fresh := New(50, wordCounter{})
	assert.Equal(t, fresh.Len(), b.Len())
	assert.Equal(t, fresh.TokenCount(), b.TokenCount())
	assert.Empty(t, b.Messages())
}

func TestBufferMessagesIsACopy(t *testing.T) {
	b := New(0, wordCounter{})
	b.AddUserMessage("original", nil)

	msgs := b.Messages()
	msgs[0].Content = "changed"
	assert.Equal(t, "original", b.Messages()[0].Content)
}

func TestBufferNeverExceedsBudget(t *testing.T) {
	counters := map[string]TokenCounter{
		"words":    wordCounter{},
		"estimate": &tokenizer.Tokenizer{},
	}

	for name, counter := range counters {
		t.Run(name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(7))
			const budget = 120
			b := New(budget, counter)
			b.AddSystemMessage("system prompt")

			for i := 0; i < 500; i++ {
				content := words(rng.Intn(80))
				switch rng.Intn(4) {
				case 0:
					b.AddAssistantMessage(content)
				case 1:
					b.AddUserMessage(content, []byte{1})
				default:
					b.AddUserMessage(content, nil)
				}

				require.LessOrEqual(t, b.TokenCount(), budget, "iteration %d", i)
				msgs := b.Messages()
				require.NotEmpty(t, msgs)
				require.Equal(t, types.RoleSystem, msgs[0].Role, "system message evicted at iteration %d", i)
				require.Equal(t, "system prompt", msgs[0].Content)
			}
		})
	}
}
