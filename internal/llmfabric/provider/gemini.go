package provider

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider wraps the official google.golang.org/genai client, grounded
// on pkg/model/gemini/gemini.go's buildRequest/buildConfig/UsageMetadata
// extraction pattern (simplified here to plain text turns; tool-calling is
// out of this fabric's scope).
type GeminiProvider struct {
	client *genai.Client
	cfg    Config
}

func NewGeminiProvider(ctx context.Context, cfg Config) (*GeminiProvider, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiProvider{client: client, cfg: cfg}, nil
}

func buildGeminiRequest(messages []Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var systemInstruction *genai.Content

	for _, m := range messages {
		if m.Role == RoleSystem {
			systemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: m.Content}},
				Role:  "user",
			}
			continue
		}
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: m.Content}},
			Role:  role,
		})
	}
	return contents, systemInstruction
}

func (p *GeminiProvider) genConfig(systemInstruction *genai.Content) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{SystemInstruction: systemInstruction}
	if p.cfg.Temperature > 0 {
		temp := float32(p.cfg.Temperature)
		cfg.Temperature = &temp
	}
	if p.cfg.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(p.cfg.MaxTokens)
	}
	return cfg
}

func (p *GeminiProvider) Generate(ctx context.Context, messages []Message) (Result, error) {
	contents, systemInstruction := buildGeminiRequest(messages)
	resp, err := p.client.Models.GenerateContent(ctx, p.cfg.Model, contents, p.genConfig(systemInstruction))
	if err != nil {
		return Result{}, fmt.Errorf("gemini: generate: %w", err)
	}

	var text string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			text += part.Text
		}
	}

	var usage Usage
	if resp.UsageMetadata != nil {
		usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return Result{Text: text, Usage: usage}, nil
}

func (p *GeminiProvider) Stream(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	contents, systemInstruction := buildGeminiRequest(messages)
	out := make(chan StreamChunk, 16)

	go func() {
		defer close(out)
		var maxUsage Usage
		for resp, err := range p.client.Models.GenerateContentStream(ctx, p.cfg.Model, contents, p.genConfig(systemInstruction)) {
			if err != nil {
				return
			}
			var delta string
			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					delta += part.Text
				}
			}
			if resp.UsageMetadata != nil {
				u := Usage{
					PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
					CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
					TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
				}
				maxUsage = maxOf(maxUsage, u)
			}
			select {
			case out <- StreamChunk{Delta: delta, Usage: maxUsage}:
			case <-ctx.Done():
				return
			}
		}
		out <- StreamChunk{Done: true, Usage: maxUsage}
	}()

	return out, nil
}

func maxOf(a, b Usage) Usage {
	if b.PromptTokens > a.PromptTokens {
		a.PromptTokens = b.PromptTokens
	}
	if b.CompletionTokens > a.CompletionTokens {
		a.CompletionTokens = b.CompletionTokens
	}
	if b.TotalTokens > a.TotalTokens {
		a.TotalTokens = b.TotalTokens
	}
	return a
}

func (p *GeminiProvider) ModelName() string { return p.cfg.Model }
func (p *GeminiProvider) Close() error       { return nil }
