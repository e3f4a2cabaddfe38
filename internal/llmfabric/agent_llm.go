// Package llmfabric implements the per-agent LLM configuration, provider
// fallback chain, token-usage accounting, streaming wrapper, and
// structured-output wrapper (spec.md §4.1). It wraps the L1 adapters in
// internal/llmfabric/provider.
package llmfabric

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/finrag/stockagent/internal/llmfabric/provider"
	"github.com/finrag/stockagent/internal/tokenusage"
)

// AgentLLM is the per-agent capability spec.md calls AgentLLM(agent_name):
// get_llm/invoke_with_fallback/ainvoke_with_fallback/stream/with_structured_output.
// Its identity is stable across a config refresh; only the cached provider
// instance is rebuilt (spec.md §9 "Global LLM... caches").
type AgentLLM struct {
	agentName string
	configs   *ConfigStore
	queue     *tokenusage.Queue
	newProvider func(ctx context.Context, cfg provider.Config) (provider.LLMProvider, error)

	mu       sync.Mutex
	cached   provider.LLMProvider
	cachedAt time.Time
}

// Option configures an AgentLLM at construction time.
type Option func(*AgentLLM)

// WithProviderFactory overrides how concrete providers are built; tests use
// this to substitute a scripted fake provider for the fallback loop.
func WithProviderFactory(f func(ctx context.Context, cfg provider.Config) (provider.LLMProvider, error)) Option {
	return func(a *AgentLLM) { a.newProvider = f }
}

// NewAgentLLM constructs the capability for agentName; configs supplies the
// live AgentConfig (and its refresh generation), queue is optional (nil
// disables token-usage recording, e.g. in tests).
func NewAgentLLM(agentName string, configs *ConfigStore, queue *tokenusage.Queue, opts ...Option) *AgentLLM {
	a := &AgentLLM{agentName: agentName, configs: configs, queue: queue, newProvider: provider.New}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GetLLM returns the cached provider for this agent, rebuilding it when
// refresh is true or the config store has a newer generation than the one
// the cache was built from.
func (a *AgentLLM) GetLLM(ctx context.Context, refresh bool) (provider.LLMProvider, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cfg, _ := a.configs.Get(a.agentName)
	if !refresh && a.cached != nil && !a.configs.Invalidated(a.agentName, a.cachedAt) {
		return a.cached, nil
	}

	if a.cached != nil {
		_ = a.cached.Close()
	}

	p, err := a.newProvider(ctx, cfg.Primary.toProviderConfig())
	if err != nil {
		return nil, fmt.Errorf("llmfabric: build provider for agent %q: %w", a.agentName, err)
	}
	a.cached = p
	a.cachedAt = time.Now()
	return p, nil
}

// invokeFn is the shape both Invoke and InvokeAsync pass through the
// fallback loop; it exists so the same control flow serves both the
// blocking CLI call site and a goroutine-per-request server call site.
type invokeFn func(ctx context.Context, p provider.LLMProvider, messages []provider.Message) (provider.Result, error)

func defaultInvoke(ctx context.Context, p provider.LLMProvider, messages []provider.Message) (provider.Result, error) {
	return p.Generate(ctx, messages)
}

// FallbackOptions carries the optional token-tracking identity spec.md's
// invoke_with_fallback accepts as user_id/project_type.
type FallbackOptions struct {
	UserID      string
	ProjectType string
}

// Invoke is the Go shape of invoke_with_fallback: attempts the primary
// config, then each fallback config in order, sleeping 1s between attempts,
// until max_retries is exhausted; the primary config is restored on the
// AgentLLM regardless of which attempt succeeded. It is blocking-call-site
// safe (spec's synchronous "invoke_with_fallback").
func (a *AgentLLM) Invoke(ctx context.Context, messages []provider.Message, opts FallbackOptions) (provider.Result, error) {
	return a.invokeWithFallback(ctx, messages, opts, defaultInvoke, time.Sleep)
}

// InvokeAsync is invoke_with_fallback's cooperative twin: identical
// semantics, but its sleeps are ctx-aware so a caller running it inside a
// goroutine can be cancelled without blocking the whole process (spec.md's
// "non-blocking sleeps"). Safe to call from any goroutine.
func (a *AgentLLM) InvokeAsync(ctx context.Context, messages []provider.Message, opts FallbackOptions) (provider.Result, error) {
	return a.invokeWithFallback(ctx, messages, opts, defaultInvoke, ctxSleep(ctx))
}

func ctxSleep(ctx context.Context) func(time.Duration) {
	return func(d time.Duration) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	}
}

func (a *AgentLLM) invokeWithFallback(ctx context.Context, messages []provider.Message, opts FallbackOptions, invoke invokeFn, sleep func(time.Duration)) (provider.Result, error) {
	cfg, _ := a.configs.Get(a.agentName)

	attempts := []Config{cfg.Primary}
	if cfg.Fallback.Enabled {
		maxRetries := cfg.Fallback.MaxRetries
		if maxRetries <= 0 {
			maxRetries = len(cfg.Fallback.Providers) + 1
		}
		for _, fb := range cfg.Fallback.Providers {
			if len(attempts) >= maxRetries {
				break
			}
			attempts = append(attempts, fb)
		}
	}

	var tracker *tokenusage.Tracker
	trackingEnabled := a.queue != nil && opts.UserID != "" && opts.ProjectType != ""

	var lastErr error
	for i, attemptCfg := range attempts {
		if i > 0 {
			sleep(time.Second)
		}

		p, err := a.newProvider(ctx, attemptCfg.toProviderConfig())
		if err != nil {
			lastErr = err
			continue
		}

		if trackingEnabled {
			tracker = a.queue.NewTracker(opts.UserID, opts.ProjectType, attemptCfg.ModelName, tokenusage.TokenTypeLLM)
		}

		result, err := invoke(ctx, p, messages)
		_ = p.Close()
		if err != nil {
			lastErr = err
			if tracker != nil {
				tracker.Abort()
			}
			continue
		}

		if tracker != nil {
			usage := extractUsage(result)
			tracker.Observe(usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
			tracker.Commit()
		}
		return result, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("llmfabric: all attempts failed")
	}
	return provider.Result{}, lastErr
}

// Stream yields model chunks, degrading to a single chunk when the
// underlying provider lacks real streaming (each adapter already implements
// that degrade itself; this method only adds the max-across-chunks token
// accumulation spec.md §4.1 requires).
func (a *AgentLLM) Stream(ctx context.Context, messages []provider.Message, opts FallbackOptions) (<-chan provider.StreamChunk, error) {
	p, err := a.GetLLM(ctx, false)
	if err != nil {
		return nil, err
	}

	raw, err := p.Stream(ctx, messages)
	if err != nil {
		return nil, err
	}

	out := make(chan provider.StreamChunk, 16)
	go func() {
		defer close(out)
		var tracker *tokenusage.Tracker
		if a.queue != nil && opts.UserID != "" && opts.ProjectType != "" {
			tracker = a.queue.NewTracker(opts.UserID, opts.ProjectType, p.ModelName(), tokenusage.TokenTypeLLM)
		}
		for chunk := range raw {
			if tracker != nil {
				tracker.Observe(chunk.Usage.PromptTokens, chunk.Usage.CompletionTokens, chunk.Usage.TotalTokens)
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				if tracker != nil {
					tracker.Abort()
				}
				return
			}
			if chunk.Done && tracker != nil {
				tracker.Commit()
			}
		}
	}()
	return out, nil
}
