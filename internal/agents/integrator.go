package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/finrag/stockagent/internal/state"
)

// Integrator is spec.md §4.5's knowledge_integrator: it runs after the
// parallel retriever fan-out when more than one source produced data,
// fusing every retrieved_data bucket and the technical/financial agent
// results into a single ordered text block the Summarizer reads instead of
// walking RetrievedData itself.
type Integrator struct{}

func NewIntegrator() *Integrator { return &Integrator{} }

func (a *Integrator) Name() string { return "knowledge_integrator" }

func (a *Integrator) Process(ctx context.Context, s *state.AgentState) error {
	start := time.Now()

	sources := sourcesWithData(s)
	if len(sources) == 0 {
		recordResult(s, a.Name(), start, state.StatusCompletedNoData, nil, "", "")
		return nil
	}

	var b strings.Builder
	for _, key := range sources {
		hits := s.GetRetrievedData(key)
		fmt.Fprintf(&b, "## %s\n", key)
		for _, h := range hits {
			b.WriteString(formatIntegratedHit(h))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if tech := s.AgentResults["technical_analyzer"]; tech != nil && tech.Status == state.StatusCompleted {
		b.WriteString("## technical\n")
		fmt.Fprintf(&b, "%v\n\n", tech.Data)
	}
	if fin := s.AgentResults["financial_retriever"]; fin != nil && fin.Status == state.StatusCompleted {
		b.WriteString("## financial\n")
		fmt.Fprintf(&b, "%v\n\n", fin.Data)
	}

	s.IntegratedContext = strings.TrimSpace(b.String())
	recordResult(s, a.Name(), start, state.StatusCompleted, len(sources), "", "")
	return nil
}

// sourcesWithData returns the retrieved_data keys holding at least one hit,
// sorted for deterministic output ordering.
func sourcesWithData(s *state.AgentState) []string {
	var keys []string
	for key, hits := range s.RetrievedData {
		if len(hits) > 0 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func formatIntegratedHit(h state.SourceHit) string {
	switch h.Kind {
	case state.SourceTelegram:
		return fmt.Sprintf("- %s", h.Content)
	case state.SourceReport, state.SourceConfidential:
		return fmt.Sprintf("- [%s %s] %s", h.Source, h.PublishDate.Format("2006-01-02"), h.Content)
	case state.SourceFinancial:
		return fmt.Sprintf("- %s %s(%s): %.2f %s", h.Company, h.ItemCode, h.YearMonth, h.Value, h.Unit)
	default:
		return fmt.Sprintf("- %s", h.Content)
	}
}

// ContextResponseAgent is spec.md §4.5's context_response_agent: it runs
// instead of the integrator on follow-up questions (retrievers are
// skipped), carrying the prior turn's agent_results forward as the
// Summarizer's input context.
type ContextResponseAgent struct{}

func NewContextResponseAgent() *ContextResponseAgent { return &ContextResponseAgent{} }

func (a *ContextResponseAgent) Name() string { return "context_response_agent" }

func (a *ContextResponseAgent) Process(ctx context.Context, s *state.AgentState) error {
	start := time.Now()
	if !s.IsFollowUp {
		recordResult(s, a.Name(), start, state.StatusCompletedNoData, nil, "", "")
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "이전 대화 맥락에서 이어지는 질문: %s\n", s.Query)
	if s.Summary != "" {
		fmt.Fprintf(&b, "이전 요약:\n%s\n", s.Summary)
	}

	s.IntegratedContext = strings.TrimSpace(b.String())
	recordResult(s, a.Name(), start, state.StatusCompleted, nil, "", "")
	return nil
}
