package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/finrag/stockagent/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizerSkipsWhenNoIntegratedContext(t *testing.T) {
	llm := newTestAgentLLM(summarizerName, "요약", nil)
	agent := NewSummarizer(llm)
	s := state.New("q", "005930", "", "", false)

	require.NoError(t, agent.Process(context.Background(), s))
	assert.Equal(t, state.StatusCompletedNoData, s.AgentResults[agent.Name()].Status)
	assert.Empty(t, s.Summary)
}

func TestSummarizerProducesSummaryFromIntegratedContext(t *testing.T) {
	llm := newTestAgentLLM(summarizerName, "삼성전자는 실적 호조세를 보이고 있습니다.", nil)
	agent := NewSummarizer(llm)
	s := state.New("삼성전자 실적 어때?", "005930", "삼성전자", "반도체", false)
	s.IntegratedContext = "## report\n- 영업이익 10조원"

	require.NoError(t, agent.Process(context.Background(), s))

	result := s.AgentResults[agent.Name()]
	require.NotNil(t, result)
	assert.Equal(t, state.StatusCompleted, result.Status)
	assert.Equal(t, "삼성전자는 실적 호조세를 보이고 있습니다.", s.Summary)
}

func TestSummarizerProducesPerSectionSummaryWhenTOCPresent(t *testing.T) {
	llm := newTestAgentLLM(summarizerName, "섹션 요약", nil)
	agent := NewSummarizer(llm)
	s := state.New("q", "005930", "삼성전자", "반도체", false)
	s.IntegratedContext = "근거 텍스트"
	s.TOC = []state.TOCSection{{SectionID: "s1", Title: "1. 개요"}, {SectionID: "s2", Title: "2. 전망"}}

	require.NoError(t, agent.Process(context.Background(), s))

	require.Len(t, s.SummaryBySection, 2)
	assert.Equal(t, "섹션 요약", s.SummaryBySection["s1"])
	assert.Equal(t, "섹션 요약", s.SummaryBySection["s2"])
}

func TestSummarizerRecordsFailedOnLLMError(t *testing.T) {
	llm := newTestAgentLLM(summarizerName, "", errors.New("provider down"))
	agent := NewSummarizer(llm)
	s := state.New("q", "005930", "", "", false)
	s.IntegratedContext = "근거"

	require.NoError(t, agent.Process(context.Background(), s))

	result := s.AgentResults[agent.Name()]
	require.NotNil(t, result)
	assert.Equal(t, state.StatusFailed, result.Status)
	require.Len(t, s.Errors, 1)
}
