package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/finrag/stockagent/internal/llmfabric"
	"github.com/finrag/stockagent/internal/llmfabric/provider"
	"github.com/finrag/stockagent/internal/state"
	"github.com/finrag/stockagent/internal/technical"
)

// TechnicalAnalyzer honors data_requirements.technical_analysis_needed,
// fetches OHLCV/supply-demand data for the stock, derives indicators/chart
// patterns/trading signals, and asks an LLM for a narrative summary, per
// SPEC_FULL.md's TechnicalAnalyzer and technical_analyzer_agent.py's
// _perform_technical_analysis.
type TechnicalAnalyzer struct {
	client *technical.Client
	llm    *llmfabric.AgentLLM
	now    func() time.Time
}

func NewTechnicalAnalyzer(client *technical.Client, llm *llmfabric.AgentLLM) *TechnicalAnalyzer {
	return &TechnicalAnalyzer{client: client, llm: llm, now: time.Now}
}

func (a *TechnicalAnalyzer) Name() string { return "technical_analyzer" }

func (a *TechnicalAnalyzer) Process(ctx context.Context, s *state.AgentState) error {
	start := time.Now()
	if s.QuestionAnalysis == nil || !s.QuestionAnalysis.DataRequirements.TechnicalAnalysisNeeded {
		recordResult(s, a.Name(), start, state.StatusCompletedNoData, nil, "", "")
		return nil
	}
	if s.StockCode == "" {
		recordError(s, a.Name(), start, state.StatusFailed, fmt.Errorf("technical analyzer: stock code required"), nil)
		return nil
	}

	candles, err := a.client.FetchCandles(ctx, s.StockCode, "1y", "1d")
	if err != nil {
		recordError(s, a.Name(), start, state.StatusFailed, fmt.Errorf("technical analyzer: fetch candles: %w", err), nil)
		return nil
	}
	if len(candles) == 0 {
		recordResult(s, a.Name(), start, state.StatusCompletedNoData, nil, "", "")
		return nil
	}

	supplyDemand, err := a.client.FetchSupplyDemand(ctx, s.StockCode, 30, a.now)
	if err != nil {
		supplyDemand = nil
	}

	indicators := technical.CalculateIndicators(candles)
	chartPatterns := technical.AnalyzeChartPatterns(candles)
	tradingSignals := technical.GenerateTradingSignals(candles, indicators)
	sentiment := technical.AnalyzeMarketSentiment(candles)

	analysis := technical.Analysis{
		StockCode:       s.StockCode,
		StockName:       s.StockName,
		AnalysisDate:    a.now(),
		CurrentPrice:    candles[len(candles)-1].Close,
		Candles:         candles,
		SupplyDemand:    supplyDemand,
		Indicators:      indicators,
		ChartPatterns:   chartPatterns,
		TradingSignals:  tradingSignals,
		MarketSentiment: sentiment,
	}

	summary, err := a.generateSummary(ctx, s.StockName, s.Query, indicators, tradingSignals)
	if err != nil {
		summary = fmt.Sprintf("%s의 기술적 분석을 완료했습니다. 종합 매매 신호는 '%s'입니다.", s.StockName, tradingSignals.OverallSignal)
	}

	analysis.Summary = summary
	analysis.Recommendations = technical.GenerateRecommendations(tradingSignals)
	recordResult(s, a.Name(), start, state.StatusCompleted, analysis, "", modelName(ctx, a.llm))
	return nil
}

func (a *TechnicalAnalyzer) generateSummary(ctx context.Context, stockName, query string, ind technical.Indicators, signals technical.TradingSignals) (string, error) {
	prompt := fmt.Sprintf(technicalSummaryPrompt, stockName, formatOptFloat(ind.RSI), formatOptFloat(ind.MACD), signals.OverallSignal, query)
	result, err := a.llm.InvokeAsync(ctx, []provider.Message{{Role: provider.RoleUser, Content: prompt}}, llmfabric.FallbackOptions{})
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

func formatOptFloat(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}

const technicalSummaryPrompt = `당신은 전문 기술적 분석가입니다. %s의 기술적 분석 결과를 바탕으로 종합적인 분석 요약을 작성해주세요.

기술적 지표:
- RSI: %s
- MACD: %s
- 종합 매매 신호: %s

사용자 질문: %s

3-4문장으로 간결하게 현재 기술적 상황과 투자 시사점을 설명해주세요.`
