package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/finrag/stockagent/internal/llmfabric"
	"github.com/finrag/stockagent/internal/llmfabric/provider"
	"github.com/finrag/stockagent/internal/state"
)

const (
	reportAnalysisSystemPrompt = `당신은 기업리포트를 분석하는 애널리스트입니다. 제공된 리포트 내용을 바탕으로 질문에 답하세요. 리포트에 없는 내용은 추측하지 마세요.`

	investmentOpinionPrompt = `다음 리포트들에서 종목 %s(%s)에 대한 투자의견과 목표가를 추출하세요.
각 리포트마다 "투자의견: <의견>"과 "목표가격: <숫자>" 형식으로 답하고, 어느 리포트(출처와 날짜)에 대한 것인지 명시하세요.

%s`
)

// reportAnalysis is the shared result shape for both ReportAnalyzer and
// ConfidentialAnalyzer, ported from report_analyzer_agent.py's
// {llm_response, investment_opinions, opinion_summary} return dict.
type reportAnalysis struct {
	LLMResponse        string              `json:"llm_response"`
	InvestmentOpinions []InvestmentOpinion `json:"investment_opinions"`
	OpinionSummary      string              `json:"opinion_summary"`
}

// formatReportContents renders hits as the "--- 리포트 N ---" block report
// AnalyzerAgent feeds its prompts, ported from format_report_contents.
func formatReportContents(hits []state.SourceHit) string {
	var b strings.Builder
	for i, h := range hits {
		fmt.Fprintf(&b, "\n--- 리포트 %d ---\n", i+1)
		fmt.Fprintf(&b, "출처: %s\n", h.Source)
		fmt.Fprintf(&b, "날짜: %s\n", h.PublishDate.Format("20060102"))
		fmt.Fprintf(&b, "내용:\n%s\n", h.Content)
	}
	return b.String()
}

// runReportAnalysis is the shared two-prompt (analysis + opinion extraction)
// flow both ReportAnalyzer and ConfidentialAnalyzer run against their own
// retrieved_data key, ported from ReportAnalyzerAgent's analyze_reports.
func runReportAnalysis(ctx context.Context, llm *llmfabric.AgentLLM, query, stockCode, stockName string, hits []state.SourceHit) (reportAnalysis, error) {
	if len(hits) == 0 {
		return reportAnalysis{}, nil
	}

	formatted := formatReportContents(hits)
	queryWithDate := fmt.Sprintf("오늘 %s 기준, %s", time.Now().Format("2006-01-02"), query)

	analysisMessages := []provider.Message{
		{Role: provider.RoleSystem, Content: reportAnalysisSystemPrompt},
		{Role: provider.RoleUser, Content: fmt.Sprintf("질문: %s\n종목: %s(%s)\n\n%s", queryWithDate, stockName, stockCode, formatted)},
	}
	opinionMessages := []provider.Message{
		{Role: provider.RoleUser, Content: fmt.Sprintf(investmentOpinionPrompt, stockName, stockCode, formatted)},
	}

	type invokeOutcome struct {
		result provider.Result
		err    error
	}
	analysisCh := make(chan invokeOutcome, 1)
	opinionCh := make(chan invokeOutcome, 1)

	go func() {
		r, err := llm.InvokeAsync(ctx, analysisMessages, llmfabric.FallbackOptions{})
		analysisCh <- invokeOutcome{r, err}
	}()
	go func() {
		r, err := llm.InvokeAsync(ctx, opinionMessages, llmfabric.FallbackOptions{})
		opinionCh <- invokeOutcome{r, err}
	}()

	analysisOut := <-analysisCh
	opinionOut := <-opinionCh

	out := reportAnalysis{LLMResponse: "분석 중 오류가 발생했습니다.", OpinionSummary: "의견 추출 중 오류가 발생했습니다."}
	if analysisOut.err == nil {
		out.LLMResponse = analysisOut.result.Text
	}
	if opinionOut.err == nil {
		out.OpinionSummary = opinionOut.result.Text
		out.InvestmentOpinions = ExtractInvestmentOpinions(opinionOut.result.Text, hits)
	}

	if analysisOut.err != nil && opinionOut.err != nil {
		return out, fmt.Errorf("report analysis: %w", analysisOut.err)
	}
	return out, nil
}

// ReportAnalyzer consumes retrieved_data["report"] (written by
// ReportRetriever) and produces an analysis + investment-opinion extraction,
// per spec.md §4.4's "ReportAnalyzer".
type ReportAnalyzer struct {
	llm *llmfabric.AgentLLM
}

func NewReportAnalyzer(llm *llmfabric.AgentLLM) *ReportAnalyzer {
	return &ReportAnalyzer{llm: llm}
}

func (a *ReportAnalyzer) Name() string { return "report_analyzer" }

func (a *ReportAnalyzer) Process(ctx context.Context, s *state.AgentState) error {
	return runAnalyzer(ctx, s, a.Name(), "report", a.llm)
}

// ConfidentialAnalyzer is ReportAnalyzer's twin over retrieved_data["confidential"].
type ConfidentialAnalyzer struct {
	llm *llmfabric.AgentLLM
}

func NewConfidentialAnalyzer(llm *llmfabric.AgentLLM) *ConfidentialAnalyzer {
	return &ConfidentialAnalyzer{llm: llm}
}

func (a *ConfidentialAnalyzer) Name() string { return "confidential_analyzer" }

func (a *ConfidentialAnalyzer) Process(ctx context.Context, s *state.AgentState) error {
	return runAnalyzer(ctx, s, a.Name(), "confidential", a.llm)
}

func runAnalyzer(ctx context.Context, s *state.AgentState, agentName, dataKey string, llm *llmfabric.AgentLLM) error {
	start := time.Now()
	hits := s.GetRetrievedData(dataKey)
	if len(hits) == 0 {
		recordResult(s, agentName, start, state.StatusCompletedNoData, nil, "", "")
		return nil
	}

	analysis, err := runReportAnalysis(ctx, llm, s.Query, s.StockCode, s.StockName, hits)
	if err != nil {
		recordError(s, agentName, start, state.StatusFailed, fmt.Errorf("%s: %w", agentName, err), nil)
		return nil
	}

	recordResult(s, agentName, start, state.StatusCompleted, analysis, "", modelName(ctx, llm))
	return nil
}
