package llmfabric

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape of the LLM config file spec.md §3/§6
// names as LLMConfigPath: a map from agent name to its primary provider
// config plus an optional fallback chain, grounded on
// pkg/config/loader.go's decode-via-mapstructure pattern.
type fileConfig struct {
	Agents map[string]fileAgentConfig `yaml:"agents"`
}

type fileAgentConfig struct {
	Provider    string             `yaml:"provider"`
	ModelName   string             `yaml:"model_name"`
	Temperature float64            `yaml:"temperature"`
	Streaming   bool               `yaml:"streaming"`
	APIKey      string             `yaml:"api_key"`
	BaseURL     string             `yaml:"base_url"`
	MaxTokens   int                `yaml:"max_tokens"`
	ExtraParams map[string]any     `yaml:"extra_params"`
	Fallback    fileFallbackConfig `yaml:"fallback"`
}

type fileFallbackConfig struct {
	Enabled    bool              `yaml:"enabled"`
	MaxRetries int               `yaml:"max_retries"`
	Providers  []fileAgentConfig `yaml:"providers"`
}

func (f fileAgentConfig) toConfig() Config {
	return Config{
		Provider:    f.Provider,
		ModelName:   f.ModelName,
		Temperature: f.Temperature,
		Streaming:   f.Streaming,
		APIKey:      f.APIKey,
		BaseURL:     f.BaseURL,
		MaxTokens:   f.MaxTokens,
		ExtraParams: f.ExtraParams,
	}
}

// LoadAgentConfigFile reads path's YAML into the per-agent map
// NewFileConfigStore/NewConfigStore consume, expanding nothing beyond
// plain YAML decoding (env-var expansion, when needed, happens in
// internal/config.Load for the process config; this file is LLM-provider
// credentials specifically, kept in its own file per spec.md §6).
func LoadAgentConfigFile(path string) (map[string]AgentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("llmfabric: read %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("llmfabric: parse %s: %w", path, err)
	}

	var fc fileConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &fc,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("llmfabric: decode %s: %w", path, err)
	}

	agents := make(map[string]AgentConfig, len(fc.Agents))
	for name, a := range fc.Agents {
		fallbackProviders := make([]Config, len(a.Fallback.Providers))
		for i, p := range a.Fallback.Providers {
			fallbackProviders[i] = p.toConfig()
		}
		agents[name] = AgentConfig{
			Primary: a.toConfig(),
			Fallback: FallbackSettings{
				Enabled:    a.Fallback.Enabled,
				MaxRetries: a.Fallback.MaxRetries,
				Providers:  fallbackProviders,
			},
		}
	}
	return agents, nil
}
