package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/surfer/pkg/llm"
	"github.com/entrhq/surfer/pkg/types"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": "{\"actions\":[]}"}
  }],
  "usage": {"prompt_tokens": 42, "completion_tokens": 7, "total_tokens": 49}
}`

func newTestServer(t *testing.T, capture *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, capture))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody)
	}))
}

func TestComplete(t *testing.T) {
	var captured map[string]interface{}
	server := newTestServer(t, &captured)
	defer server.Close()

	p, err := NewProvider("test-key", WithBaseURL(server.URL), WithModel("gpt-4o-mini"))
	require.NoError(t, err)

	msg, err := p.Complete(context.Background(), []*types.Message{
		types.NewSystemMessage("be terse"),
		types.NewUserMessage("hello"),
		types.NewAssistantMessage(`{"actions":[]}`),
	}, llm.WithJSONResponse(), llm.WithTemperature(0))
	require.NoError(t, err)

	assert.Equal(t, types.RoleAssistant, msg.Role)
	assert.Equal(t, `{"actions":[]}`, msg.Content)
	require.NotNil(t, msg.Usage)
	assert.Equal(t, 42, msg.Usage.PromptTokens)
	assert.Equal(t, 7, msg.Usage.CompletionTokens)
	assert.Equal(t, 49, msg.Usage.TotalTokens)

	assert.Equal(t, "gpt-4o-mini", captured["model"])
	assert.Equal(t, map[string]interface{}{"type": "json_object"}, captured["response_format"])
	assert.Equal(t, float64(0), captured["temperature"])

	sent, ok := captured["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, sent, 3)
	assert.Equal(t, "system", sent[0].(map[string]interface{})["role"])
	assert.Equal(t, "user", sent[1].(map[string]interface{})["role"])
	assert.Equal(t, "assistant", sent[2].(map[string]interface{})["role"])
}

func TestCompleteWithImage(t *testing.T) {
	var captured map[string]interface{}
	server := newTestServer(t, &captured)
	defer server.Close()

	p, err := NewProvider("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), []*types.Message{
		types.NewUserImageMessage("what is on screen?", []byte{0x89, 'P', 'N', 'G'}),
	})
	require.NoError(t, err)

	sent := captured["messages"].([]interface{})
	parts, ok := sent[0].(map[string]interface{})["content"].([]interface{})
	require.True(t, ok, "image message should be multi-part")
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].(map[string]interface{})["type"])
	assert.Equal(t, "image_url", parts[1].(map[string]interface{})["type"])

	imageURL := parts[1].(map[string]interface{})["image_url"].(map[string]interface{})
	assert.Contains(t, imageURL["url"], "data:image/png;base64,")
	_, hasFormat := captured["response_format"]
	assert.False(t, hasFormat)
}

func TestCompleteHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"slow down"}}`)
	}))
	defer server.Close()

	p, err := NewProvider("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), []*types.Message{types.NewUserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "slow down")
}

func TestNewProviderRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewProvider("")
	assert.Error(t, err)

	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:9999/v1")
	p, err := NewProvider("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999/v1", p.GetBaseURL())
	assert.Equal(t, DefaultModel, p.GetModel())
}

func TestCloneWithModel(t *testing.T) {
	p, err := NewProvider("k", WithBaseURL("http://example.test"))
	require.NoError(t, err)

	clone := p.CloneWithModel("gpt-4o-mini")
	assert.Equal(t, "gpt-4o-mini", clone.GetModel())
	assert.Equal(t, "gpt-4o-mini", clone.GetModelInfo().Name)
	assert.Equal(t, DefaultModel, p.GetModel())
	assert.Equal(t, DefaultModel, p.GetModelInfo().Name)
}
