package agents

import (
	"context"
	"errors"

	"github.com/finrag/stockagent/internal/llmfabric"
	"github.com/finrag/stockagent/internal/llmfabric/provider"
)

// scriptedProvider is a minimal LLMProvider fake, adapted from
// internal/llmfabric's own test file of the same name.
type scriptedProvider struct {
	text string
	err  error
}

func (p *scriptedProvider) Generate(ctx context.Context, messages []provider.Message) (provider.Result, error) {
	if p.err != nil {
		return provider.Result{}, p.err
	}
	return provider.Result{Text: p.text}, nil
}
func (p *scriptedProvider) Stream(ctx context.Context, messages []provider.Message) (<-chan provider.StreamChunk, error) {
	return nil, errors.New("not used")
}
func (p *scriptedProvider) ModelName() string { return "scripted-model" }
func (p *scriptedProvider) Close() error      { return nil }

// newTestAgentLLM builds an AgentLLM whose single configured provider
// always returns text (or err, if non-nil) for every call.
func newTestAgentLLM(name, text string, err error) *llmfabric.AgentLLM {
	configs := llmfabric.NewConfigStore(map[string]llmfabric.AgentConfig{
		name: {Primary: llmfabric.Config{Provider: "openai", ModelName: "test-model"}},
	})
	factory := func(ctx context.Context, cfg provider.Config) (provider.LLMProvider, error) {
		return &scriptedProvider{text: text, err: err}, nil
	}
	return llmfabric.NewAgentLLM(name, configs, nil, llmfabric.WithProviderFactory(factory))
}
