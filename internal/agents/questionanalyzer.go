package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/finrag/stockagent/internal/llmfabric"
	"github.com/finrag/stockagent/internal/llmfabric/provider"
	"github.com/finrag/stockagent/internal/state"
)

const questionAnalyzerName = "question_analyzer"

// questionAnalysisSchema is the JSON shape WithStructuredOutput renders via
// invopop/jsonschema and the LLM is instructed to emit; field names follow
// spec.md §4.4's QuestionAnalyzer enumeration.
type questionAnalysisSchema struct {
	Entities struct {
		StockCode string `json:"stock_code"`
		StockName string `json:"stock_name"`
		Sector    string `json:"sector"`
	} `json:"entities"`
	Classification struct {
		PrimaryIntent      string `json:"primary_intent" jsonschema:"enum=종목기본정보,enum=성과전망,enum=재무분석,enum=산업동향,enum=기타"`
		Complexity         string `json:"complexity" jsonschema:"enum=단순,enum=중간,enum=복합,enum=전문가급"`
		ExpectedAnswerType string `json:"expected_answer_type" jsonschema:"enum=사실형,enum=추론형,enum=비교형,enum=예측형,enum=설명형,enum=종합형"`
	} `json:"classification"`
	Keywords []string `json:"keywords"`
	Subgroup []string `json:"subgroup"`
	DataRequirements struct {
		TechnicalAnalysisNeeded bool `json:"technical_analysis_needed"`
		FinancialAnalysisNeeded bool `json:"financial_analysis_needed"`
		ReportsNeeded           bool `json:"reports_needed"`
		ConfidentialNeeded      bool `json:"confidential_needed"`
		TelegramNeeded          bool `json:"telegram_needed"`
	} `json:"data_requirements"`
}

// QuestionAnalyzer is the first agent the graph runs on every request; it
// classifies the query and decides which retriever agents run, per
// spec.md §4.4's QuestionAnalyzer description.
type QuestionAnalyzer struct {
	llm *llmfabric.AgentLLM
}

func NewQuestionAnalyzer(llm *llmfabric.AgentLLM) *QuestionAnalyzer {
	return &QuestionAnalyzer{llm: llm}
}

func (a *QuestionAnalyzer) Name() string { return questionAnalyzerName }

func (a *QuestionAnalyzer) Process(ctx context.Context, s *state.AgentState) error {
	start := time.Now()

	messages := []provider.Message{
		{Role: provider.RoleSystem, Content: questionAnalyzerSystemPrompt},
		{Role: provider.RoleUser, Content: buildQuestionAnalyzerPrompt(s)},
	}

	result, err := a.llm.WithStructuredOutput(ctx, messages, &questionAnalysisSchema{}, llmfabric.FallbackOptions{})
	if err != nil {
		recordError(s, a.Name(), start, state.StatusFailed, fmt.Errorf("question analyzer: %w", err), nil)
		return nil
	}

	analysis, err := decodeQuestionAnalysis(result.Parsed)
	if err != nil {
		recordError(s, a.Name(), start, state.StatusCompletedNoData, fmt.Errorf("question analyzer: %w", err), map[string]any{"raw": result.Raw})
		return nil
	}

	s.QuestionAnalysis = analysis
	recordResult(s, a.Name(), start, state.StatusCompleted, analysis, "", modelName(ctx, a.llm))
	return nil
}

// questionAnalyzerSystemPrompt is treated as an opaque template per spec.md
// §1's "concrete prompt texts (treated as opaque templates)" exclusion; its
// exact wording isn't load-bearing for any invariant.
const questionAnalyzerSystemPrompt = `You are a financial question analyzer. Classify the user's question about a Korean stock and decide which evidence sources are needed to answer it.`

func buildQuestionAnalyzerPrompt(s *state.AgentState) string {
	return fmt.Sprintf("질문: %s\n종목코드: %s\n종목명: %s\n섹터: %s", s.Query, s.StockCode, s.StockName, s.Sector)
}

func decodeQuestionAnalysis(parsed map[string]any) (*state.QuestionAnalysis, error) {
	if parsed == nil {
		return nil, fmt.Errorf("empty structured response")
	}

	var schema questionAnalysisSchema
	if err := remarshal(parsed, &schema); err != nil {
		return nil, err
	}

	return &state.QuestionAnalysis{
		Entities: state.Entities{
			StockCode: schema.Entities.StockCode,
			StockName: schema.Entities.StockName,
			Sector:    schema.Entities.Sector,
		},
		Classification: state.Classification{
			PrimaryIntent:      state.Intent(schema.Classification.PrimaryIntent),
			Complexity:         state.Complexity(schema.Classification.Complexity),
			ExpectedAnswerType: state.AnswerType(schema.Classification.ExpectedAnswerType),
		},
		Keywords: schema.Keywords,
		Subgroup: schema.Subgroup,
		DataRequirements: state.DataRequirements{
			TechnicalAnalysisNeeded: schema.DataRequirements.TechnicalAnalysisNeeded,
			FinancialAnalysisNeeded: schema.DataRequirements.FinancialAnalysisNeeded,
			ReportsNeeded:           schema.DataRequirements.ReportsNeeded,
			ConfidentialNeeded:      schema.DataRequirements.ConfidentialNeeded,
			TelegramNeeded:          schema.DataRequirements.TelegramNeeded,
		},
	}, nil
}
