package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/finrag/stockagent/pkg/httpclient"
)

const ollamaDefaultBaseURL = "http://localhost:11434"

// OllamaProvider is the local/offline chat fallback, grounded on
// pkg/llms/ollama.go's Chat API request/response shape (simplified: no tool
// calling, no thinking traces, which this fabric never exercises).
type OllamaProvider struct {
	cfg        Config
	httpClient *httpclient.Client
}

func NewOllamaProvider(cfg Config) *OllamaProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = ollamaDefaultBaseURL
	}
	return &OllamaProvider{cfg: cfg, httpClient: httpclient.New()}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done               bool `json:"done"`
	PromptEvalCount    int  `json:"prompt_eval_count"`
	EvalCount          int  `json:"eval_count"`
}

func toOllamaMessages(messages []Message) []ollamaMessage {
	out := make([]ollamaMessage, len(messages))
	for i, m := range messages {
		out[i] = ollamaMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

func (p *OllamaProvider) Generate(ctx context.Context, messages []Message) (Result, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:    p.cfg.Model,
		Messages: toOllamaMessages(messages),
		Stream:   false,
		Options:  &ollamaOptions{Temperature: p.cfg.Temperature},
	})
	if err != nil {
		return Result{}, fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, fmt.Errorf("ollama: decode response: %w", err)
	}

	return Result{
		Text: parsed.Message.Content,
		Usage: Usage{
			PromptTokens:     parsed.PromptEvalCount,
			CompletionTokens: parsed.EvalCount,
			TotalTokens:      parsed.PromptEvalCount + parsed.EvalCount,
		},
	}, nil
}

// Stream degrades gracefully to a single chunk; Ollama's NDJSON streaming
// adds no information this fabric needs beyond the final totals, and the
// degrade-to-non-streamed path is explicitly required by spec.md §4.1 for
// any model "lacking streaming" from this fabric's point of view.
func (p *OllamaProvider) Stream(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	result, err := p.Generate(ctx, messages)
	if err != nil {
		return nil, err
	}
	out := make(chan StreamChunk, 1)
	out <- StreamChunk{Delta: result.Text, Usage: result.Usage, Done: true}
	close(out)
	return out, nil
}

func (p *OllamaProvider) ModelName() string { return p.cfg.Model }
func (p *OllamaProvider) Close() error       { return nil }
