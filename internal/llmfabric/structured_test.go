package llmfabric

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finrag/stockagent/internal/llmfabric/provider"
)

type fencedResultDummy struct {
	A int `json:"a"`
}

func TestStructuredOutputStripsJSONFences(t *testing.T) {
	outcomes := []*scriptedProvider{
		{name: "m", result: provider.Result{Text: "```json\n{\"a\":1}\n```"}},
	}
	factory, _ := newScriptedFactory(outcomes)

	configs := NewConfigStore(map[string]AgentConfig{
		"formatter": {Primary: Config{Provider: "openai", ModelName: "m"}},
	})
	agent := NewAgentLLM("formatter", configs, nil, WithProviderFactory(factory))

	result, err := agent.WithStructuredOutput(context.Background(), []provider.Message{{Role: provider.RoleUser, Content: "describe"}}, &fencedResultDummy{}, FallbackOptions{})
	require.NoError(t, err)
	require.NotNil(t, result.Parsed)
	assert.Equal(t, float64(1), result.Parsed["a"])
	assert.Equal(t, "```json\n{\"a\":1}\n```", result.Raw)
}

func TestStructuredOutputFallsBackToRawOnParseFailure(t *testing.T) {
	outcomes := []*scriptedProvider{
		{name: "m", result: provider.Result{Text: "not json at all"}},
	}
	factory, _ := newScriptedFactory(outcomes)

	configs := NewConfigStore(map[string]AgentConfig{
		"formatter": {Primary: Config{Provider: "openai", ModelName: "m"}},
	})
	agent := NewAgentLLM("formatter", configs, nil, WithProviderFactory(factory))

	result, err := agent.WithStructuredOutput(context.Background(), []provider.Message{{Role: provider.RoleUser, Content: "describe"}}, &fencedResultDummy{}, FallbackOptions{})
	require.NoError(t, err)
	assert.Nil(t, result.Parsed)
	assert.Equal(t, "not json at all", result.Raw)
}

func TestConfigStoreInvalidatesOnFileChange(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/llm.yaml"
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	loads := 0
	loader := func(p string) (map[string]AgentConfig, error) {
		loads++
		return map[string]AgentConfig{"a": {Primary: Config{ModelName: "v1"}}}, nil
	}

	store, err := NewFileConfigStore(path, time.Millisecond, loader)
	require.NoError(t, err)
	cfg, gen1 := store.Get("a")
	assert.Equal(t, "v1", cfg.Primary.ModelName)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0644))
	loader2 := func(p string) (map[string]AgentConfig, error) {
		return map[string]AgentConfig{"a": {Primary: Config{ModelName: "v2"}}}, nil
	}
	store.loader = loader2

	cfg2, gen2 := store.Get("a")
	assert.Equal(t, "v2", cfg2.Primary.ModelName)
	assert.True(t, gen2.After(gen1))
}
