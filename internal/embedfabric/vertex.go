package embedfabric

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/finrag/stockagent/internal/tokenusage"
)

// VertexProvider embeds via Google's Vertex AI / Gemini embedding models,
// reusing the same google.golang.org/genai SDK as
// internal/llmfabric/provider/gemini.go (the teacher only wires this SDK for
// Gemini; we extend that same wiring to embeddings rather than hand-rolling
// a second Vertex HTTP client).
type VertexProvider struct {
	client *genai.Client
	cfg    Config
	queue  *tokenusage.Queue

	primaryLocation  string
	fallbackLocation string
}

// NewVertexProvider constructs a Vertex embedding adapter. cfg.BaseURL, if
// set, is interpreted as the primary GCP region; it defaults to
// "us-central1" region... the recovery path rebinds to "us-central1" as the
// fallback per spec.md §4.2, so when the primary already is us-central1 the
// fallback is "us-east4".
func NewVertexProvider(ctx context.Context, cfg Config, queue *tokenusage.Queue) (*VertexProvider, error) {
	if cfg.Dimension == 0 {
		cfg.Dimension = 768
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 50
	}

	primary := cfg.BaseURL
	if primary == "" {
		primary = "us-central1"
	}
	fallback := "us-central1"
	if primary == fallback {
		fallback = "us-east4"
	}

	client, err := newGenaiClientForLocation(ctx, cfg.APIKey, primary)
	if err != nil {
		return nil, fmt.Errorf("embedfabric: vertex client: %w", err)
	}

	return &VertexProvider{
		client:           client,
		cfg:              cfg,
		queue:            queue,
		primaryLocation:  primary,
		fallbackLocation: fallback,
	}, nil
}

// newGenaiClientForLocation builds a client pinned to a specific regional
// endpoint, mirroring provider.NewGeminiProvider's plain APIKey construction
// but overriding HTTPOptions.BaseURL so the region-rebind recovery path has
// somewhere concrete to rebind to.
func newGenaiClientForLocation(ctx context.Context, apiKey, location string) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: fmt.Sprintf("https://%s-aiplatform.googleapis.com", location),
		},
	})
}

// CountTokens approximates tokens by whitespace splitting; Vertex does not
// expose a local tokenizer the way tiktoken does for OpenAI.
func (p *VertexProvider) CountTokens(text string) int {
	return len(strings.Fields(text))
}

func (p *VertexProvider) ValidateAndSplitTexts(texts []string) [][]string {
	out := make([][]string, len(texts))
	for i, t := range texts {
		out[i] = splitText(t, p.cfg.MaxTokens, p.CountTokens)
	}
	return out
}

func vertexTaskType(t TaskType) string {
	switch t {
	case TaskRetrievalQuery:
		return "RETRIEVAL_QUERY"
	case TaskRetrievalDocument:
		return "RETRIEVAL_DOCUMENT"
	default:
		return "RETRIEVAL_DOCUMENT"
	}
}

// embedBatchOnce issues one EmbedContent call without any retry logic; retry
// and 429 recovery live in embedBatchWithRecovery.
func (p *VertexProvider) embedBatchOnce(ctx context.Context, batch []string, taskType TaskType) ([][]float32, error) {
	contents := make([]*genai.Content, len(batch))
	for i, t := range batch {
		contents[i] = &genai.Content{Parts: []*genai.Part{{Text: t}}, Role: "user"}
	}

	resp, err := p.client.Models.EmbedContent(ctx, p.cfg.Name, contents, &genai.EmbedContentConfig{
		TaskType: vertexTaskType(taskType),
	})
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

// isQuotaExceeded reports whether err looks like a Google 429 "Quota
// exceeded" response, the only error class spec.md §4.2 calls out for
// region-rebind-and-retry rather than plain backoff.
func isQuotaExceeded(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota")
}

// embedBatchWithRecovery implements spec.md §4.2's Google recovery policy:
// on a 429 Quota error, rebind the client to the fallback region once and
// retry exactly once before re-raising; otherwise retry general Google API
// errors up to 3 attempts total with exponential backoff (multiplier 1,
// 4s floor, 10s ceiling).
func (p *VertexProvider) embedBatchWithRecovery(ctx context.Context, batch []string, taskType TaskType) ([][]float32, error) {
	const maxAttempts = 3
	var lastErr error
	regionRebound := false

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Min(math.Max(math.Pow(2, float64(attempt-1)), 4), 10)) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		vectors, err := p.embedBatchOnce(ctx, batch, taskType)
		if err == nil {
			return vectors, nil
		}
		lastErr = err

		if isQuotaExceeded(err) && !regionRebound {
			slog.Warn("vertex embedding quota exceeded, rebinding region",
				"from", p.primaryLocation, "to", p.fallbackLocation)
			client, rebindErr := newGenaiClientForLocation(ctx, p.cfg.APIKey, p.fallbackLocation)
			if rebindErr == nil {
				p.client = client
				regionRebound = true
			}
			vectors, err = p.embedBatchOnce(ctx, batch, taskType)
			if err == nil {
				return vectors, nil
			}
			lastErr = err
		}
	}
	return nil, fmt.Errorf("embedfabric: vertex embedding failed after retries: %w", lastErr)
}

func (p *VertexProvider) CreateEmbeddings(ctx context.Context, texts []string, taskType TaskType) ([][]float32, error) {
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
		vectors, err := p.embedBatchWithRecovery(ctx, batch, taskType)
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

func (p *VertexProvider) Dimension() int    { return p.cfg.Dimension }
func (p *VertexProvider) ModelName() string { return p.cfg.Name }

// Close is a no-op: the genai client holds no long-lived connection to tear
// down (each call is a plain HTTPS request).
func (p *VertexProvider) Close() error { return nil }
