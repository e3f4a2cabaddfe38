package embedfabric

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/finrag/stockagent/internal/tokenusage"
	"github.com/finrag/stockagent/pkg/httpclient"
)

// BGEM3Provider talks to a local BGE-M3 embedding sidecar over HTTP,
// grounded on pkg/embedders/ollama.go's local-model HTTP pattern (a
// self-hosted model served behind a minimal JSON API, one mutex-serialized
// client) but batched per spec.md §4.2 rather than one call per text.
type BGEM3Provider struct {
	cfg        Config
	httpClient *httpclient.Client
	queue      *tokenusage.Queue

	// BGE-M3 is typically served by a single local process; like the
	// teacher's Ollama embedder, concurrent requests to some sidecar
	// implementations are unsafe, so calls are serialized.
	mu sync.Mutex
}

func NewBGEM3Provider(cfg Config, queue *tokenusage.Queue) *BGEM3Provider {
	if cfg.Name == "" {
		cfg.Name = "bge-m3"
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = 1024
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8192
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 32
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8089"
	}

	return &BGEM3Provider{
		cfg:        cfg,
		httpClient: httpclient.New(),
		queue:      queue,
	}
}

// CountTokens approximates with whitespace splitting; BGE-M3's sidecar
// exposes no local tokenizer endpoint.
func (p *BGEM3Provider) CountTokens(text string) int {
	return len(strings.Fields(text))
}

func (p *BGEM3Provider) ValidateAndSplitTexts(texts []string) [][]string {
	out := make([][]string, len(texts))
	for i, t := range texts {
		out[i] = splitText(t, p.cfg.MaxTokens, p.CountTokens)
	}
	return out
}

type bgeEmbedRequest struct {
	Texts []string `json:"texts"`
}

type bgeEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (p *BGEM3Provider) embedOneBatch(ctx context.Context, batch []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	body, err := json.Marshal(bgeEmbedRequest{Texts: batch})
	if err != nil {
		return nil, fmt.Errorf("embedfabric: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedfabric: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedfabric: request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed bgeEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("embedfabric: decode response: %w", err)
	}
	if len(parsed.Embeddings) != len(batch) {
		return nil, fmt.Errorf("embedfabric: bge sidecar returned %d embeddings for %d inputs", len(parsed.Embeddings), len(batch))
	}
	return parsed.Embeddings, nil
}

func (p *BGEM3Provider) CreateEmbeddings(ctx context.Context, texts []string, taskType TaskType) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batches := greedyPackBatches(texts, p.cfg.MaxTokens*p.cfg.BatchSize/8, p.CountTokens)

	var tracker *tokenusage.Tracker
	if p.queue != nil {
		tracker = p.queue.NewTracker("", "embedding", p.cfg.Name, tokenusage.TokenTypeEmbedding)
	}

	results := make([][]float32, 0, len(texts))
	totalTokens := 0
	for _, batch := range batches {
		vectors, err := p.embedOneBatch(ctx, batch)
		if err != nil {
			if tracker != nil {
				tracker.Abort()
			}
			return nil, err
		}
		results = append(results, vectors...)
		for _, t := range batch {
			totalTokens += p.CountTokens(t)
		}
	}

	if tracker != nil {
		tracker.Observe(totalTokens, 0, totalTokens)
		tracker.Commit()
	}
	return results, nil
}

func (p *BGEM3Provider) Dimension() int    { return p.cfg.Dimension }
func (p *BGEM3Provider) ModelName() string { return p.cfg.Name }
func (p *BGEM3Provider) Close() error      { return nil }
