package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/finrag/stockagent/internal/llmfabric/provider"
	"github.com/finrag/stockagent/internal/state"
)

// hitID returns the identity a reranker tracks a hit by across the
// rerank round-trip. Report/confidential chunks carry FileName+Page;
// telegram messages carry their (channel_id, message_id) metadata pair.
func hitID(h state.SourceHit) string {
	if h.Kind == state.SourceTelegram {
		return telegramIdentityKey(h)
	}
	return fmt.Sprintf("%s#%d", h.FileName, h.Page)
}

// Reranker re-scores hits by LLM-judged relevance to query, grounded on
// pkg/context/reranking/reranker.go's Reranker interface.
type Reranker interface {
	Rerank(ctx context.Context, query string, hits []state.SourceHit, topK int) ([]state.SourceHit, error)
}

// LLMReranker asks an LLM to rank hits by relevance and assigns descending
// scores by position, adapted from pkg/context/reranking/reranker.go's
// LLMReranker — the teacher's pb.Message/llms.ToolDefinition wire shape is
// replaced by internal/llmfabric/provider's provider-neutral Message/Result.
type LLMReranker struct {
	llm        provider.LLMProvider
	maxResults int
}

// NewLLMReranker constructs a reranker bounded to maxResults hits per call
// (0 or negative defaults to 20, matching the teacher's default).
func NewLLMReranker(llm provider.LLMProvider, maxResults int) *LLMReranker {
	if maxResults <= 0 {
		maxResults = 20
	}
	return &LLMReranker{llm: llm, maxResults: maxResults}
}

// Rerank implements Reranker.
func (r *LLMReranker) Rerank(ctx context.Context, query string, hits []state.SourceHit, topK int) ([]state.SourceHit, error) {
	if len(hits) == 0 {
		return hits, nil
	}

	toRerank := hits
	if len(toRerank) > r.maxResults {
		toRerank = toRerank[:r.maxResults]
	}

	prompt := buildRerankingPrompt(query, toRerank)
	messages := []provider.Message{
		{Role: provider.RoleSystem, Content: "You are a search result reranking system. Your task is to score and rank search results based on their relevance to a query. Return a JSON array of result IDs sorted by relevance (most relevant first)."},
		{Role: provider.RoleUser, Content: prompt},
	}

	result, err := r.llm.Generate(ctx, messages)
	if err != nil {
		slog.Warn("retrieval: rerank LLM call failed, falling back to original order", "error", err)
		return truncate(hits, topK), fmt.Errorf("rerank: %w", err)
	}

	rerankedIDs, err := parseRerankingResponse(result.Text)
	if err != nil {
		slog.Warn("retrieval: rerank response unparseable, falling back to original order", "error", err)
		return truncate(hits, topK), nil
	}

	byID := make(map[string]state.SourceHit, len(toRerank))
	for _, h := range toRerank {
		byID[hitID(h)] = h
	}

	reranked := make([]state.SourceHit, 0, len(rerankedIDs))
	seen := make(map[string]bool, len(rerankedIDs))
	for i, id := range rerankedIDs {
		h, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		newScore := 1.0 - float64(i)*0.05
		if newScore < 0.1 {
			newScore = 0.1
		}
		h.Score = newScore
		reranked = append(reranked, h)
		seen[id] = true
	}
	for _, h := range toRerank {
		if !seen[hitID(h)] {
			reranked = append(reranked, h)
		}
	}

	sort.Slice(reranked, func(i, j int) bool { return reranked[i].Score > reranked[j].Score })
	return truncate(reranked, topK), nil
}

func truncate(hits []state.SourceHit, topK int) []state.SourceHit {
	if topK > 0 && len(hits) > topK {
		return hits[:topK]
	}
	return hits
}

// buildRerankingPrompt numbers each hit's content (truncated to 500 chars)
// and non-content metadata, sanitized against prompt injection.
func buildRerankingPrompt(query string, hits []state.SourceHit) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Query: %s\n\n", sanitizeInput(query)))
	sb.WriteString("Search Results:\n\n")

	for i, h := range hits {
		content := h.Content
		if len(content) > 500 {
			content = content[:500] + "..."
		}
		content = sanitizeInput(content)

		sb.WriteString(fmt.Sprintf("Result %d (ID: %s):\n", i+1, hitID(h)))
		sb.WriteString(fmt.Sprintf("Content: %s\n", content))

		meta := ""
		for k, v := range h.Metadata {
			if k == "content" {
				continue
			}
			meta += fmt.Sprintf("%s: %v, ", k, v)
		}
		if meta != "" {
			sb.WriteString(fmt.Sprintf("Metadata: %s\n", strings.TrimSuffix(meta, ", ")))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Please return a JSON array of result IDs sorted by relevance to the query (most relevant first).\n")
	sb.WriteString("Format: [\"id1\", \"id2\", \"id3\", ...]\n")
	sb.WriteString("Only include IDs that are relevant. Exclude irrelevant results.\n")

	return sb.String()
}

func parseRerankingResponse(response string) ([]string, error) {
	response = strings.TrimSpace(response)

	startIdx := strings.Index(response, "[")
	endIdx := strings.LastIndex(response, "]")
	if startIdx == -1 || endIdx == -1 || startIdx >= endIdx {
		return nil, fmt.Errorf("retrieval: no JSON array found in rerank response")
	}

	jsonStr := response[startIdx : endIdx+1]

	var ids []string
	if err := json.Unmarshal([]byte(jsonStr), &ids); err != nil {
		jsonStr = strings.ReplaceAll(jsonStr, "'", "\"")
		if err := json.Unmarshal([]byte(jsonStr), &ids); err != nil {
			return extractIDsManually(response), nil
		}
	}
	return ids, nil
}

func extractIDsManually(response string) []string {
	var ids []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.Contains(line, "\""):
			parts := strings.Split(line, "\"")
			for i := 1; i < len(parts); i += 2 {
				if len(parts[i]) > 0 {
					ids = append(ids, parts[i])
				}
			}
		case strings.Contains(line, "'"):
			parts := strings.Split(line, "'")
			for i := 1; i < len(parts); i += 2 {
				if len(parts[i]) > 0 {
					ids = append(ids, parts[i])
				}
			}
		default:
			for _, word := range strings.Fields(line) {
				word = strings.Trim(word, "[]\",'")
				if len(word) > 0 && (strings.HasPrefix(word, "result-") || len(word) > 10) {
					ids = append(ids, word)
				}
			}
		}
	}
	return ids
}

// NoOpReranker passes hits through unchanged, truncated to topK.
type NoOpReranker struct{}

// Rerank implements Reranker.
func (NoOpReranker) Rerank(_ context.Context, _ string, hits []state.SourceHit, topK int) ([]state.SourceHit, error) {
	return truncate(hits, topK), nil
}

// sanitizeInput strips role-indicator strings, instruction-override
// phrases, and delimiter-attack sequences before text reaches an LLM
// prompt, adapted verbatim from pkg/context/reranking/reranker.go.
func sanitizeInput(input string) string {
	sanitized := input

	for _, s := range []string{"SYSTEM:", "System:", "system:", "ASSISTANT:", "Assistant:", "assistant:", "USER:", "User:", "user:"} {
		sanitized = strings.ReplaceAll(sanitized, s, "")
	}
	for _, s := range []string{"Ignore previous instructions", "ignore previous instructions", "Ignore all previous", "ignore all previous", "Disregard previous", "disregard previous"} {
		sanitized = strings.ReplaceAll(sanitized, s, "")
	}
	for _, s := range []string{"---", "===", "***", "```"} {
		sanitized = strings.ReplaceAll(sanitized, s, "")
	}

	return strings.TrimSpace(sanitized)
}
