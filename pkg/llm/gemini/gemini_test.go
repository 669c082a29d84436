package gemini

import (
	"testing"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/surfer/pkg/types"
)

func TestSplitConversation(t *testing.T) {
	system, history, last := splitConversation([]*types.Message{
		types.NewSystemMessage("rules"),
		types.NewUserMessage("task"),
		types.NewUserMessage("no actions yet"),
		types.NewAssistantMessage(`{"actions":[{"type":"goto","url":"https://example.com"}]}`),
		types.NewUserImageMessage("page", []byte{1}),
	})

	assert.Equal(t, "rules", system)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Len(t, history[0].Parts, 2, "consecutive user turns are merged")
	assert.Equal(t, "model", history[1].Role)

	require.NotNil(t, last)
	assert.Equal(t, "user", last.Role)
	require.Len(t, last.Parts, 2)
	assert.Equal(t, genai.Text("page"), last.Parts[0])
}

func TestSplitConversationTrailingModelTurn(t *testing.T) {
	_, history, last := splitConversation([]*types.Message{
		types.NewUserMessage("task"),
		types.NewAssistantMessage("{}"),
	})
	require.Len(t, history, 2)
	require.NotNil(t, last)
	assert.Equal(t, genai.Text("Continue."), last.Parts[0])
}

func TestSplitConversationEmpty(t *testing.T) {
	system, history, last := splitConversation([]*types.Message{types.NewSystemMessage("only")})
	assert.Equal(t, "only", system)
	assert.Nil(t, history)
	assert.Nil(t, last)
}

func TestFirstText(t *testing.T) {
	assert.Equal(t, "", firstText(nil))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"a":`), genai.Text(`1}`)}}},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("ignored")}}},
		},
	}
	assert.Equal(t, `{"a":1}`, firstText(resp))
}

func TestNewProviderRequiresKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	_, err := NewProvider(t.Context(), "")
	assert.Error(t, err)
}
