// Package technical fetches OHLCV/supply-demand data for a stock code from
// a stock-data-collector-shaped HTTP API and derives the technical
// indicators, chart patterns, and trading signals the TechnicalAnalyzer
// agent reports, ported from technical_analyzer_agent.py.
package technical

import "time"

// Candle is one OHLCV bar.
type Candle struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// SupplyDemandRow is one day's investor-flow breakdown.
type SupplyDemandRow struct {
	Date               time.Time
	IndividualInvestor *float64
	ForeignInvestor    *float64
	InstitutionTotal   *float64
}

// Indicators is one snapshot of the trailing technical indicators computed
// over a candle series, each pointer nil when the series is too short to
// compute it (mirrors the Python's safe_float-wrapped None fields).
type Indicators struct {
	SMA20           *float64
	SMA60           *float64
	EMA12           *float64
	EMA26           *float64
	RSI             *float64
	MACD            *float64
	MACDSignal      *float64
	MACDHistogram   *float64
	BollingerUpper  *float64
	BollingerMiddle *float64
	BollingerLower  *float64
	StochasticK     *float64
	StochasticD     *float64
}

// BreakoutSignal is one support/resistance breakout event.
type BreakoutSignal struct {
	Type               string
	Level              float64
	CurrentPrice       float64
	VolumeConfirmation bool
}

// ChartPatterns is the support/resistance/trend/pattern bundle spec.md
// §4.4.1 names as "chart pattern analysis".
type ChartPatterns struct {
	SupportLevels    []float64
	ResistanceLevels []float64
	TrendDirection   string
	TrendStrength    string
	Patterns         []string
	BreakoutSignals  []BreakoutSignal
}

// Signal is one indicator's buy/sell/neutral vote.
type Signal struct {
	Indicator string
	Signal    string
	Strength  float64
	Value     float64
	Reason    string
}

// TradingSignals is the aggregated buy/sell/neutral verdict and its
// supporting per-indicator votes.
type TradingSignals struct {
	OverallSignal string
	Confidence    float64
	Signals       []Signal
	EntryPoints   []float64
	ExitPoints    []float64
	StopLoss      *float64
	TargetPrice   *float64
}

// MarketSentiment is the coarse volume/price-volume read spec.md names.
type MarketSentiment struct {
	VolumeTrend         string
	PriceVolumeRelation string
	ForeignFlow         *float64
	InstitutionFlow     *float64
}

// Analysis is the full result a TechnicalAnalyzer agent attaches to its
// AgentResult.Data, equivalent to the Python's TechnicalAnalysisResult.
type Analysis struct {
	StockCode       string
	StockName       string
	AnalysisDate    time.Time
	CurrentPrice    float64
	Candles         []Candle
	SupplyDemand    []SupplyDemandRow
	Indicators      Indicators
	ChartPatterns   ChartPatterns
	TradingSignals  TradingSignals
	MarketSentiment MarketSentiment
	Summary         string
	Recommendations []string
}

// GenerateRecommendations is _generate_recommendations: a fixed rule-based
// set of advisories keyed off the overall trading signal, not an LLM call.
func GenerateRecommendations(signals TradingSignals) []string {
	var recs []string
	switch signals.OverallSignal {
	case "강력매수":
		recs = append(recs, "강력한 매수 신호가 확인되었습니다.")
	case "매수":
		recs = append(recs, "매수 신호가 나타났습니다.")
	case "매도", "강력매도":
		recs = append(recs, "매도 신호가 확인되었습니다.")
	default:
		recs = append(recs, "현재 중립적 상황입니다.")
	}
	recs = append(recs, "분할 매수/매도를 통해 리스크를 관리하세요.")
	recs = append(recs, "손절선을 미리 설정하고 감정적 거래를 피하세요.")
	return recs
}
