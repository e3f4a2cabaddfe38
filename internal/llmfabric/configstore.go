package llmfabric

import (
	"log/slog"
	"os"
	"sync"
	"time"
)

// ConfigStore is the process-wide, mtime-polled LLM config cache described
// in spec.md §3/§4.1: a function polls the config file's mtime at most once
// per pollInterval; on change, every cached AgentLLM's provider instance is
// invalidated (but the AgentLLM's own identity is untouched).
type ConfigStore struct {
	mu          sync.RWMutex
	agents      map[string]AgentConfig
	invalidated time.Time // generation marker: anything cached before this time is stale

	path         string
	lastMTime    time.Time
	pollInterval time.Duration
	lastPoll     time.Time
	loader       func(path string) (map[string]AgentConfig, error)
}

// NewConfigStore wraps an initial agent-config set with no file-backed
// reload (used in tests / static deployments where loader is nil).
func NewConfigStore(initial map[string]AgentConfig) *ConfigStore {
	return &ConfigStore{agents: initial}
}

// NewFileConfigStore polls path for mtime changes, reloading via loader.
// pollInterval bounds how often the filesystem is even stat'd.
func NewFileConfigStore(path string, pollInterval time.Duration, loader func(path string) (map[string]AgentConfig, error)) (*ConfigStore, error) {
	agents, err := loader(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &ConfigStore{
		agents:       agents,
		path:         path,
		lastMTime:    info.ModTime(),
		pollInterval: pollInterval,
		loader:       loader,
	}, nil
}

// maybeReload stats the config file at most once per pollInterval; on a
// changed mtime it reloads and bumps the invalidation generation.
func (s *ConfigStore) maybeReload() {
	if s.loader == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.lastPoll) < s.pollInterval {
		return
	}
	s.lastPoll = time.Now()

	info, err := os.Stat(s.path)
	if err != nil {
		slog.Warn("llmfabric: config stat failed, keeping cached config", "error", err)
		return
	}
	if !info.ModTime().After(s.lastMTime) {
		return
	}

	agents, err := s.loader(s.path)
	if err != nil {
		slog.Warn("llmfabric: config reload failed, keeping cached config", "error", err)
		return
	}

	s.agents = agents
	s.lastMTime = info.ModTime()
	s.invalidated = time.Now()
	slog.Info("llmfabric: config reloaded, invalidating cached providers")
}

// Get returns agentName's current AgentConfig, first polling for a file
// change. The returned bool-ish "generation" is the invalidation timestamp.
func (s *ConfigStore) Get(agentName string) (AgentConfig, time.Time) {
	s.maybeReload()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agents[agentName], s.invalidated
}

// Invalidated reports whether a cache built at cachedAt predates the most
// recent config reload and must be rebuilt.
func (s *ConfigStore) Invalidated(agentName string, cachedAt time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cachedAt.Before(s.invalidated)
}
