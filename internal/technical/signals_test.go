package technical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float64Ptr(v float64) *float64 { return &v }

func TestGenerateTradingSignalsBuySignalFromOversoldRSI(t *testing.T) {
	candles := syntheticCandles(30, 100, 1)
	ind := Indicators{RSI: float64Ptr(25)}

	signals := GenerateTradingSignals(candles, ind)

	assert.Equal(t, "매수", signals.OverallSignal)
	require.NotNil(t, signals.StopLoss)
	require.NotNil(t, signals.TargetPrice)
	assert.InDelta(t, candles[len(candles)-1].Close*0.95, *signals.StopLoss, 0.01)
}

func TestGenerateTradingSignalsNeutralWithoutIndicators(t *testing.T) {
	candles := syntheticCandles(5, 100, 0)
	signals := GenerateTradingSignals(candles, Indicators{})
	assert.Equal(t, "중립", signals.OverallSignal)
	assert.Nil(t, signals.StopLoss)
}

func TestGenerateTradingSignalsSellFromOverboughtRSIAndBearishMACD(t *testing.T) {
	candles := syntheticCandles(30, 100, -1)
	ind := Indicators{
		RSI:           float64Ptr(80),
		MACD:          float64Ptr(-2),
		MACDSignal:    float64Ptr(-1),
		MACDHistogram: float64Ptr(-1),
	}
	signals := GenerateTradingSignals(candles, ind)
	assert.Equal(t, "매도", signals.OverallSignal)
}

func TestAnalyzeMarketSentimentDetectsVolumeIncrease(t *testing.T) {
	candles := syntheticCandles(20, 100, 0)
	for i := len(candles) - 5; i < len(candles); i++ {
		candles[i].Volume = 10000
	}
	sentiment := AnalyzeMarketSentiment(candles)
	assert.Equal(t, "증가", sentiment.VolumeTrend)
}
