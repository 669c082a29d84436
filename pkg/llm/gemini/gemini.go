// Package gemini provides a Google Gemini LLM provider.
package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/entrhq/surfer/pkg/llm"
	"github.com/entrhq/surfer/pkg/types"
)

// DefaultModel is used when no model option is given.
const DefaultModel = "gemini-1.5-flash"

// Provider implements llm.Provider on top of the Gemini API.
type Provider struct {
	client     *genai.Client
	model      string
	clientOpts []option.ClientOption
	modelInfo  *types.ModelInfo
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		p.model = model
	}
}

// WithClientOptions appends google API client options (endpoint, HTTP client).
func WithClientOptions(opts ...option.ClientOption) ProviderOption {
	return func(p *Provider) {
		p.clientOpts = append(p.clientOpts, opts...)
	}
}

// NewProvider creates a Gemini provider. An empty apiKey falls back to GOOGLE_API_KEY.
func NewProvider(ctx context.Context, apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (provide via parameter or GOOGLE_API_KEY environment variable)")
	}

	p := &Provider{model: DefaultModel}
	for _, opt := range opts {
		opt(p)
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, p.clientOpts...)
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	p.client = client
	p.modelInfo = &types.ModelInfo{
		Provider:       "gemini",
		Name:           p.model,
		MaxTokens:      1000000,
		SupportsImages: true,
		Metadata:       make(map[string]interface{}),
	}
	return p, nil
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	return p.client.Close()
}

// CloneWithModel returns a provider sharing the client but using model.
func (p *Provider) CloneWithModel(model string) llm.Provider {
	clone := *p
	clone.model = model
	mi := *p.modelInfo
	mi.Name = model
	clone.modelInfo = &mi
	return &clone
}

// Complete sends the conversation as a chat session: system messages become
// the system instruction, earlier turns become history and the final user
// turn is sent.
func (p *Provider) Complete(ctx context.Context, messages []*types.Message, opts ...llm.CompletionOption) (*types.Message, error) {
	options := llm.ApplyOptions(opts...)

	model := p.client.GenerativeModel(p.model)
	if options.JSON {
		model.ResponseMIMEType = "application/json"
	}
	if options.Temperature != nil {
		model.SetTemperature(float32(*options.Temperature))
	}
	if options.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(options.MaxTokens))
	}

	system, history, last := splitConversation(messages)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if last == nil {
		return nil, fmt.Errorf("gemini: conversation has no user turn to send")
	}

	session := model.StartChat()
	session.History = history

	resp, err := session.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini completion failed: %w", err)
	}

	msg := &types.Message{Role: types.RoleAssistant, Content: firstText(resp)}
	if resp.UsageMetadata != nil {
		msg.Usage = &types.TokenUsage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return msg, nil
}

// GetModelInfo returns information about the model being used.
func (p *Provider) GetModelInfo() *types.ModelInfo {
	return p.modelInfo
}

// GetModel returns the model name being used.
func (p *Provider) GetModel() string {
	return p.model
}

// splitConversation maps messages onto Gemini's system instruction, chat
// history and the outgoing turn. Consecutive same-role turns are merged
// because the API requires alternating roles.
func splitConversation(messages []*types.Message) (string, []*genai.Content, *genai.Content) {
	var system []string
	var turns []*genai.Content

	for _, msg := range messages {
		if msg.Role == types.RoleSystem {
			system = append(system, msg.Content)
			continue
		}

		role := "user"
		if msg.Role == types.RoleAssistant {
			role = "model"
		}
		parts := []genai.Part{genai.Text(msg.Content)}
		if msg.HasImage() {
			parts = append(parts, genai.ImageData("png", msg.Image))
		}

		if n := len(turns); n > 0 && turns[n-1].Role == role {
			turns[n-1].Parts = append(turns[n-1].Parts, parts...)
			continue
		}
		turns = append(turns, &genai.Content{Role: role, Parts: parts})
	}

	if len(turns) == 0 {
		return strings.Join(system, "\n\n"), nil, nil
	}
	last := turns[len(turns)-1]
	if last.Role != "user" {
		// A trailing model turn has nothing to answer; send a nudge.
		return strings.Join(system, "\n\n"), turns, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text("Continue.")}}
	}
	return strings.Join(system, "\n\n"), turns[:len(turns)-1], last
}

func firstText(r *genai.GenerateContentResponse) string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range r.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return b.String()
}
