package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/finrag/stockagent/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReportHits() []state.SourceHit {
	return []state.SourceHit{
		{Kind: state.SourceReport, Source: "한국투자증권", PublishDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), Content: "실적이 시장 기대치를 상회했습니다."},
	}
}

const sampleOpinionResponse = `한국투자증권 20260701 리포트: 투자의견: 매수, 목표가격: 95,000`

func TestReportAnalyzerSkipsWhenNoRetrievedData(t *testing.T) {
	llm := newTestAgentLLM("report_analyzer", "", nil)
	agent := NewReportAnalyzer(llm)
	s := state.New("q", "005930", "삼성전자", "반도체", false)

	require.NoError(t, agent.Process(context.Background(), s))
	result := s.AgentResults[agent.Name()]
	require.NotNil(t, result)
	assert.Equal(t, state.StatusCompletedNoData, result.Status)
}

func TestReportAnalyzerExtractsOpinionsFromRetrievedData(t *testing.T) {
	llm := newTestAgentLLM("report_analyzer", sampleOpinionResponse, nil)
	agent := NewReportAnalyzer(llm)
	s := state.New("실적 어때", "005930", "삼성전자", "반도체", false)
	s.SetRetrievedData("report", sampleReportHits())

	require.NoError(t, agent.Process(context.Background(), s))
	result := s.AgentResults[agent.Name()]
	require.NotNil(t, result)
	assert.Equal(t, state.StatusCompleted, result.Status)

	analysis, ok := result.Data.(reportAnalysis)
	require.True(t, ok)
	require.Len(t, analysis.InvestmentOpinions, 1)
	assert.Equal(t, "매수", analysis.InvestmentOpinions[0].Opinion)
	assert.Equal(t, 95000, analysis.InvestmentOpinions[0].TargetPrice)
	assert.True(t, analysis.InvestmentOpinions[0].HasPrice)
}

func TestReportAnalyzerRecordsFailedWhenBothInvocationsFail(t *testing.T) {
	llm := newTestAgentLLM("report_analyzer", "", errors.New("provider down"))
	agent := NewReportAnalyzer(llm)
	s := state.New("q", "005930", "삼성전자", "반도체", false)
	s.SetRetrievedData("report", sampleReportHits())

	require.NoError(t, agent.Process(context.Background(), s))
	result := s.AgentResults[agent.Name()]
	require.NotNil(t, result)
	assert.Equal(t, state.StatusFailed, result.Status)
}

func TestConfidentialAnalyzerSkipsWhenNoRetrievedData(t *testing.T) {
	llm := newTestAgentLLM("confidential_analyzer", "", nil)
	agent := NewConfidentialAnalyzer(llm)
	s := state.New("q", "005930", "삼성전자", "반도체", false)

	require.NoError(t, agent.Process(context.Background(), s))
	result := s.AgentResults[agent.Name()]
	require.NotNil(t, result)
	assert.Equal(t, state.StatusCompletedNoData, result.Status)
}

func TestConfidentialAnalyzerUsesConfidentialRetrievedData(t *testing.T) {
	llm := newTestAgentLLM("confidential_analyzer", sampleOpinionResponse, nil)
	agent := NewConfidentialAnalyzer(llm)
	s := state.New("실적 어때", "005930", "삼성전자", "반도체", false)
	s.SetRetrievedData("confidential", sampleReportHits())

	require.NoError(t, agent.Process(context.Background(), s))
	result := s.AgentResults[agent.Name()]
	require.NotNil(t, result)
	assert.Equal(t, state.StatusCompleted, result.Status)
}
