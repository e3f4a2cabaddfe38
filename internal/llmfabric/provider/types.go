// Package provider holds the opaque chat-LLM adapters (L1) behind a single
// LLMProvider interface, grounded on pkg/llms/registry.go's provider shape.
package provider

import "context"

// Role is a chat message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is the provider-neutral chat message shape every adapter
// translates to and from its own wire format.
type Message struct {
	Role    Role
	Content string
}

// Usage is the token accounting an adapter extracts from its own response
// envelope, in the provider's native field names normalized to this shape.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Result is the normalized output of a single non-streaming Generate call.
type Result struct {
	Text  string
	Usage Usage
}

// StreamChunk is one piece of a streaming Generate call.
type StreamChunk struct {
	Delta string
	Usage Usage // zero unless this chunk carries usage info (commonly the final chunk)
	Done  bool
}

// Config is the per-agent provider configuration, mirrored from
// pkg/config/llm.go's LLMConfig (field names kept, jsonschema tags dropped
// since this package never renders a schema itself).
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// LLMProvider is the interface every concrete adapter implements. Generate
// and Stream must both honor ctx cancellation; Close releases any pooled
// HTTP client resources.
type LLMProvider interface {
	Generate(ctx context.Context, messages []Message) (Result, error)
	Stream(ctx context.Context, messages []Message) (<-chan StreamChunk, error)
	ModelName() string
	Close() error
}
