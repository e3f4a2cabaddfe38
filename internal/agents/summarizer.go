package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/finrag/stockagent/internal/llmfabric"
	"github.com/finrag/stockagent/internal/llmfabric/provider"
	"github.com/finrag/stockagent/internal/state"
)

const summarizerName = "summarizer"

// summarizerSystemPrompt is treated as an opaque template, as with every
// other agent's prompt text.
const summarizerSystemPrompt = `You are a Korean-language financial analyst. Summarize the integrated evidence into a narrative answer to the user's question. Be concise and cite concrete figures where present.`

// Summarizer is spec.md §4.5's summarizer: it runs after the integrator or
// context-response agent, producing state.Summary and, when a TOC is
// present, one LLM call per top-level section into SummaryBySection so the
// ResponseFormatter can render sections independently.
type Summarizer struct {
	llm *llmfabric.AgentLLM
}

func NewSummarizer(llm *llmfabric.AgentLLM) *Summarizer {
	return &Summarizer{llm: llm}
}

func (a *Summarizer) Name() string { return summarizerName }

func (a *Summarizer) Process(ctx context.Context, s *state.AgentState) error {
	start := time.Now()

	integrated := s.IntegratedContext
	if integrated == "" {
		integrated = integratedContextFallback(s)
	}
	if integrated == "" {
		recordResult(s, a.Name(), start, state.StatusCompletedNoData, nil, "", "")
		return nil
	}

	summary, err := a.summarizeText(ctx, s.Query, integrated)
	if err != nil {
		recordError(s, a.Name(), start, state.StatusFailed, fmt.Errorf("summarizer: %w", err), nil)
		return nil
	}
	s.Summary = summary

	if len(s.TOC) > 0 {
		bySection := make(map[string]string, len(s.TOC))
		for _, section := range s.TOC {
			sectionSummary, err := a.summarizeText(ctx, section.Title, integrated)
			if err != nil {
				continue
			}
			bySection[section.SectionID] = sectionSummary
		}
		s.SummaryBySection = bySection
	}

	recordResult(s, a.Name(), start, state.StatusCompleted, summary, "", modelName(ctx, a.llm))
	return nil
}

func (a *Summarizer) summarizeText(ctx context.Context, focus, integrated string) (string, error) {
	messages := []provider.Message{
		{Role: provider.RoleSystem, Content: summarizerSystemPrompt},
		{Role: provider.RoleUser, Content: fmt.Sprintf("질문/섹션: %s\n\n근거:\n%s", focus, integrated)},
	}
	result, err := a.llm.InvokeAsync(ctx, messages, llmfabric.FallbackOptions{})
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// integratedContextFallback concatenates RetrievedData directly when no
// integrator or context-response agent ran (single-source requests skip
// both per spec.md §4.5's "knowledge_integrator (if multi-source)").
func integratedContextFallback(s *state.AgentState) string {
	sources := sourcesWithData(s)
	if len(sources) == 0 {
		return ""
	}
	out := ""
	for _, key := range sources {
		for _, h := range s.GetRetrievedData(key) {
			out += formatIntegratedHit(h) + "\n"
		}
	}
	return out
}
