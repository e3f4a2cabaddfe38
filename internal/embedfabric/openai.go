package embedfabric

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/pkoukk/tiktoken-go"

	"github.com/finrag/stockagent/internal/tokenusage"
	"github.com/finrag/stockagent/pkg/httpclient"
)

// OpenAIFamilyProvider serves OpenAI embeddings and, per spec.md §4.2, the
// OpenAI-wire-compatible Upstage and Kakao providers (they differ only in
// base URL/model/API key). Grounded on pkg/embedders/openai.go's HTTP
// request shape and batching loop, rewritten over pkg/httpclient instead of
// a hand-rolled retry loop. VertexProvider does not use pkg/httpclient; its
// Google-429 recovery and backoff are its own loop.
type OpenAIFamilyProvider struct {
	cfg        Config
	httpClient *httpclient.Client
	tokenizer  *tiktoken.Tiktoken
	queue      *tokenusage.Queue
}

var openAIDimensionDefaults = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// NewOpenAIFamilyProvider builds an adapter for OpenAI, Upstage, or Kakao,
// distinguished entirely by cfg.BaseURL/cfg.Name. queue may be nil to
// disable token-usage recording.
func NewOpenAIFamilyProvider(cfg Config, queue *tokenusage.Queue) (*OpenAIFamilyProvider, error) {
	if cfg.Dimension == 0 {
		if d, ok := openAIDimensionDefaults[cfg.Name]; ok {
			cfg.Dimension = d
		} else {
			cfg.Dimension = 1536
		}
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8191
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}

	enc, err := tiktoken.EncodingForModel(cfg.Name)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("embedfabric: load tokenizer: %w", err)
		}
	}

	return &OpenAIFamilyProvider{
		cfg:        cfg,
		httpClient: httpclient.New(httpclient.WithHeaderParser(httpclient.ParseOpenAIHeaders)),
		tokenizer:  enc,
		queue:      queue,
	}, nil
}

func (p *OpenAIFamilyProvider) CountTokens(text string) int {
	return len(p.tokenizer.Encode(text, nil, nil))
}

func (p *OpenAIFamilyProvider) ValidateAndSplitTexts(texts []string) [][]string {
	out := make([][]string, len(texts))
	for i, t := range texts {
		out[i] = splitText(t, p.cfg.MaxTokens, p.CountTokens)
	}
	return out
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *OpenAIFamilyProvider) embedOneBatch(ctx context.Context, batch []string) ([][]float32, int, error) {
	body, err := json.Marshal(openAIEmbedRequest{Model: p.cfg.Name, Input: batch})
	if err != nil {
		return nil, 0, fmt.Errorf("embedfabric: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("embedfabric: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("embedfabric: request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("embedfabric: decode response: %w", err)
	}

	sort.Slice(parsed.Data, func(i, j int) bool { return parsed.Data[i].Index < parsed.Data[j].Index })

	out := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		out[i] = d.Embedding
	}
	return out, parsed.Usage.TotalTokens, nil
}

// CreateEmbeddings greedy-packs texts into batches within the token budget
// and issues one request per batch, preserving input ordering. One
// TokenUsageRecord is written per call, summed across all batches (spec.md
// §4.2 "Emit one TokenUsageRecord per request").
func (p *OpenAIFamilyProvider) CreateEmbeddings(ctx context.Context, texts []string, taskType TaskType) ([][]float32, error) {
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
		vectors, tokens, err := p.embedOneBatch(ctx, batch)
		if err != nil {
			if tracker != nil {
				tracker.Abort()
			}
			return nil, err
		}
		results = append(results, vectors...)
		totalTokens += tokens
	}

	if tracker != nil {
		tracker.Observe(totalTokens, 0, totalTokens)
		tracker.Commit()
	}
	return results, nil
}

func (p *OpenAIFamilyProvider) Dimension() int   { return p.cfg.Dimension }
func (p *OpenAIFamilyProvider) ModelName() string { return p.cfg.Name }
func (p *OpenAIFamilyProvider) Close() error      { return nil }
