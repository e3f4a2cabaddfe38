package provider

import (
	"context"
	"fmt"
)

// New constructs the concrete LLMProvider for cfg.Provider, grounded on
// pkg/llms/registry.go's CreateLLMFromConfig switch. An unrecognized
// provider is a protocol error (spec.md §7c): unknown provider enum.
func New(ctx context.Context, cfg Config) (LLMProvider, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg), nil
	case "anthropic":
		return NewAnthropicProvider(cfg), nil
	case "gemini":
		return NewGeminiProvider(ctx, cfg)
	case "ollama":
		return NewOllamaProvider(cfg), nil
	default:
		return nil, fmt.Errorf("llmfabric: unsupported provider %q", cfg.Provider)
	}
}
