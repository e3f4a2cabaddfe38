package agents

import (
	"context"
	"testing"
	"time"

	"github.com/finrag/stockagent/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegratorSkipsWhenNoRetrievedData(t *testing.T) {
	agent := NewIntegrator()
	s := state.New("q", "005930", "", "", false)

	require.NoError(t, agent.Process(context.Background(), s))
	assert.Equal(t, state.StatusCompletedNoData, s.AgentResults[agent.Name()].Status)
	assert.Empty(t, s.IntegratedContext)
}

func TestIntegratorFusesMultipleSources(t *testing.T) {
	agent := NewIntegrator()
	s := state.New("q", "005930", "삼성전자", "반도체", false)
	s.SetRetrievedData("telegram", []state.SourceHit{{Kind: state.SourceTelegram, Content: "텔레그램 내용"}})
	s.SetRetrievedData("report", []state.SourceHit{{
		Kind: state.SourceReport, Content: "리포트 내용", Source: "증권사A", PublishDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	}})

	require.NoError(t, agent.Process(context.Background(), s))

	result := s.AgentResults[agent.Name()]
	require.NotNil(t, result)
	assert.Equal(t, state.StatusCompleted, result.Status)
	assert.Contains(t, s.IntegratedContext, "텔레그램 내용")
	assert.Contains(t, s.IntegratedContext, "리포트 내용")
	assert.Contains(t, s.IntegratedContext, "## report")
	assert.Contains(t, s.IntegratedContext, "## telegram")
}

func TestContextResponseAgentSkipsWhenNotFollowUp(t *testing.T) {
	agent := NewContextResponseAgent()
	s := state.New("q", "005930", "", "", false)

	require.NoError(t, agent.Process(context.Background(), s))
	assert.Equal(t, state.StatusCompletedNoData, s.AgentResults[agent.Name()].Status)
}

func TestContextResponseAgentCarriesPriorSummaryForward(t *testing.T) {
	agent := NewContextResponseAgent()
	s := state.New("추가 매수 고려 시 체크포인트는?", "005930", "삼성전자", "반도체", true)
	s.Summary = "이전 분석 결과 매수 우위."

	require.NoError(t, agent.Process(context.Background(), s))

	assert.Equal(t, state.StatusCompleted, s.AgentResults[agent.Name()].Status)
	assert.Contains(t, s.IntegratedContext, "이전 분석 결과 매수 우위.")
}
