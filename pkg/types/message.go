package types

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // RoleSystem is the fixed instruction preamble.
	RoleUser      MessageRole = "user"      // RoleUser carries task text, observations and execution feedback.
	RoleAssistant MessageRole = "assistant" // RoleAssistant carries the model's own step outputs.
)

// Message is a single role-tagged entry in a conversation.
type Message struct {
	// Role is who authored the message.
	Role MessageRole `json:"role" yaml:"role"`

	// Content is the text body of the message.
	Content string `json:"content" yaml:"content"`

	// Image is an optional PNG attached to the message (user messages only).
	Image []byte `json:"image,omitempty" yaml:"-"`

	// Usage is populated on assistant messages returned by a provider.
	Usage *TokenUsage `json:"usage,omitempty" yaml:"usage,omitempty"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// NewUserImageMessage creates a user message with an attached image.
func NewUserImageMessage(content string, image []byte) *Message {
	return &Message{Role: RoleUser, Content: content, Image: image}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) *Message {
	return &Message{Role: RoleAssistant, Content: content}
}

// HasImage reports whether an image is attached.
func (m *Message) HasImage() bool {
	return len(m.Image) > 0
}

// Clone returns a copy of the message that shares no mutable state with m.
func (m *Message) Clone() *Message {
	c := *m
	if m.Image != nil {
		c.Image = append([]byte(nil), m.Image...)
	}
	if m.Usage != nil {
		u := *m.Usage
		c.Usage = &u
	}
	return &c
}

// ModelInfo describes the model behind a provider.
type ModelInfo struct {
	Metadata       map[string]interface{}
	Provider       string
	Name           string
	MaxTokens      int
	SupportsImages bool
}
