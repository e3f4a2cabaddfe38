package llmfabric

import "github.com/finrag/stockagent/internal/llmfabric/provider"

// Config is one agent's LLMConfig, mirroring spec.md §3's
// {provider, model_name, temperature?, streaming?, extra_params}.
type Config struct {
	Provider    string
	ModelName   string
	Temperature float64
	Streaming   bool
	APIKey      string
	BaseURL     string
	MaxTokens   int
	ExtraParams map[string]any
}

func (c Config) toProviderConfig() provider.Config {
	return provider.Config{
		Provider:    c.Provider,
		Model:       c.ModelName,
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}
}

// FallbackSettings is the per-agent fallback chain configuration.
type FallbackSettings struct {
	Enabled    bool
	MaxRetries int
	Providers  []Config
}

// AgentConfig bundles the primary config and its fallback chain for one
// named agent, as loaded from the process-wide LLM config file.
type AgentConfig struct {
	Primary  Config
	Fallback FallbackSettings
}
