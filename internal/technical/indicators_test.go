package technical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syntheticCandles(n int, start float64, step float64) []Candle {
	out := make([]Candle, n)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	price := start
	for i := 0; i < n; i++ {
		out[i] = Candle{
			Date:   base.AddDate(0, 0, i),
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1000,
		}
		price += step
	}
	return out
}

func TestCalculateIndicatorsReturnsNilBeforeWindowFills(t *testing.T) {
	candles := syntheticCandles(10, 100, 1)
	ind := CalculateIndicators(candles)

	assert.Nil(t, ind.SMA20)
	assert.Nil(t, ind.RSI)
	assert.Nil(t, ind.MACD)
}

func TestCalculateIndicatorsComputesSMAOverFullWindow(t *testing.T) {
	candles := syntheticCandles(60, 100, 1)
	ind := CalculateIndicators(candles)

	require.NotNil(t, ind.SMA20)
	require.NotNil(t, ind.SMA60)
	require.NotNil(t, ind.RSI)

	// A monotonically increasing series should read as maximally overbought.
	assert.InDelta(t, 100.0, *ind.RSI, 0.5)
}

func TestCalculateIndicatorsBollingerBracketsPriceForFlatSeries(t *testing.T) {
	candles := syntheticCandles(25, 100, 0)
	ind := CalculateIndicators(candles)

	require.NotNil(t, ind.BollingerUpper)
	require.NotNil(t, ind.BollingerMiddle)
	require.NotNil(t, ind.BollingerLower)
	assert.InDelta(t, 100.0, *ind.BollingerMiddle, 0.001)
	assert.InDelta(t, 100.0, *ind.BollingerUpper, 0.001)
	assert.InDelta(t, 100.0, *ind.BollingerLower, 0.001)
}
