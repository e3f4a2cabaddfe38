package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/finrag/stockagent/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleAnalysisJSON = `{
  "entities": {"stock_code": "005930", "stock_name": "삼성전자", "sector": "반도체"},
  "classification": {"primary_intent": "재무분석", "complexity": "중간", "expected_answer_type": "사실형"},
  "keywords": ["실적", "영업이익"],
  "subgroup": ["반도체"],
  "data_requirements": {"technical_analysis_needed": false, "financial_analysis_needed": true, "reports_needed": true, "confidential_needed": false, "telegram_needed": true}
}`

func TestQuestionAnalyzerParsesStructuredResponse(t *testing.T) {
	llm := newTestAgentLLM(questionAnalyzerName, sampleAnalysisJSON, nil)
	agent := NewQuestionAnalyzer(llm)
	s := state.New("삼성전자 영업이익 어때?", "005930", "삼성전자", "반도체", false)

	require.NoError(t, agent.Process(context.Background(), s))

	require.NotNil(t, s.QuestionAnalysis)
	assert.Equal(t, state.IntentFinancial, s.QuestionAnalysis.Classification.PrimaryIntent)
	assert.Equal(t, state.ComplexityMedium, s.QuestionAnalysis.Classification.Complexity)
	assert.True(t, s.QuestionAnalysis.DataRequirements.FinancialAnalysisNeeded)
	assert.True(t, s.QuestionAnalysis.DataRequirements.TelegramNeeded)
	assert.False(t, s.QuestionAnalysis.DataRequirements.TechnicalAnalysisNeeded)

	result := s.AgentResults[questionAnalyzerName]
	require.NotNil(t, result)
	assert.Equal(t, state.StatusCompleted, result.Status)
}

func TestQuestionAnalyzerRecordsFailedOnLLMError(t *testing.T) {
	llm := newTestAgentLLM(questionAnalyzerName, "", errors.New("provider down"))
	agent := NewQuestionAnalyzer(llm)
	s := state.New("query", "005930", "", "", false)

	require.NoError(t, agent.Process(context.Background(), s))

	result := s.AgentResults[questionAnalyzerName]
	require.NotNil(t, result)
	assert.Equal(t, state.StatusFailed, result.Status)
	require.Len(t, s.Errors, 1)
	assert.Equal(t, questionAnalyzerName, s.Errors[0].Agent)
}

func TestQuestionAnalyzerRecordsCompletedNoDataOnUnparsableResponse(t *testing.T) {
	llm := newTestAgentLLM(questionAnalyzerName, "not json at all", nil)
	agent := NewQuestionAnalyzer(llm)
	s := state.New("query", "005930", "", "", false)

	require.NoError(t, agent.Process(context.Background(), s))

	result := s.AgentResults[questionAnalyzerName]
	require.NotNil(t, result)
	assert.Equal(t, state.StatusCompletedNoData, result.Status)
	assert.Nil(t, s.QuestionAnalysis)
}
