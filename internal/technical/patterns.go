package technical

import "math"

// findSupportLevels is _find_support_levels: local minima within the
// trailing window, a bar's low being below the lows of the two bars on
// each side.
func findSupportLevels(candles []Candle, window int) []float64 {
	recent := tailCandles(candles, window)
	var supports []float64
	for i := 2; i < len(recent)-2; i++ {
		low := recent[i].Low
		if low < recent[i-1].Low && low < recent[i+1].Low && low < recent[i-2].Low && low < recent[i+2].Low {
			supports = append(supports, low)
		}
	}
	return dedupSortLastN(supports, 3, false)
}

// findResistanceLevels is _find_resistance_levels: local maxima, mirrored.
func findResistanceLevels(candles []Candle, window int) []float64 {
	recent := tailCandles(candles, window)
	var resistances []float64
	for i := 2; i < len(recent)-2; i++ {
		high := recent[i].High
		if high > recent[i-1].High && high > recent[i+1].High && high > recent[i-2].High && high > recent[i+2].High {
			resistances = append(resistances, high)
		}
	}
	return dedupSortLastN(resistances, 3, true)
}

func tailCandles(candles []Candle, n int) []Candle {
	if len(candles) <= n {
		return candles
	}
	return candles[len(candles)-n:]
}

func dedupSortLastN(xs []float64, n int, descending bool) []float64 {
	seen := make(map[float64]bool, len(xs))
	uniq := make([]float64, 0, len(xs))
	for _, v := range xs {
		if !seen[v] {
			seen[v] = true
			uniq = append(uniq, v)
		}
	}
	for i := 0; i < len(uniq); i++ {
		for j := i + 1; j < len(uniq); j++ {
			if (uniq[j] < uniq[i]) != descending {
				uniq[i], uniq[j] = uniq[j], uniq[i]
			}
		}
	}
	if descending {
		if len(uniq) > n {
			return uniq[:n]
		}
		return uniq
	}
	if len(uniq) > n {
		return uniq[len(uniq)-n:]
	}
	return uniq
}

// analyzeTrend is _analyze_trend: direction from current-price/SMA5/SMA20
// ordering, strength from the 5-day percent change.
func analyzeTrend(candles []Candle) (direction, strength string) {
	if len(candles) < 20 {
		return "불명확", "약함"
	}
	close := closes(candles)
	sma5 := sma(close, 5)
	sma20 := sma(close, 20)
	current := close[len(close)-1]

	switch {
	case sma5 != nil && sma20 != nil && current > *sma5 && *sma5 > *sma20:
		direction = "상승"
	case sma5 != nil && sma20 != nil && current < *sma5 && *sma5 < *sma20:
		direction = "하락"
	default:
		direction = "횡보"
	}

	priceChange5d := 0.0
	if len(close) >= 5 {
		prior := close[len(close)-5]
		if prior != 0 {
			priceChange5d = math.Abs((current-prior)/prior) * 100
		}
	}
	switch {
	case priceChange5d > 5:
		strength = "강함"
	case priceChange5d > 2:
		strength = "보통"
	default:
		strength = "약함"
	}
	return direction, strength
}

// linearSlope fits a degree-1 polynomial to ys (index as x) and returns its
// slope, the Go equivalent of np.polyfit(range(n), ys, 1)[0].
func linearSlope(ys []float64) float64 {
	n := float64(len(ys))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// identifyChartPatterns is _identify_chart_patterns: golden/dead cross via
// SMA20/SMA50 and ascending/descending triangle via linear-fit slopes of
// the trailing 10 highs/lows.
func identifyChartPatterns(candles []Candle) []string {
	var patterns []string
	if len(candles) < 20 {
		return patterns
	}
	close := closes(candles)

	if len(close) >= 50 {
		sma20Series := trailingSMASeries(close, 20)
		sma50Series := trailingSMASeries(close, 50)
		n := len(sma20Series)
		if n >= 2 && sma20Series[n-1] != nil && sma50Series[n-1] != nil && sma20Series[n-2] != nil && sma50Series[n-2] != nil {
			curUp := *sma20Series[n-1] > *sma50Series[n-1]
			prevUp := *sma20Series[n-2] > *sma50Series[n-2]
			if curUp && !prevUp {
				patterns = append(patterns, "골든크로스")
			} else if !curUp && prevUp {
				patterns = append(patterns, "데드크로스")
			}
		}
	}

	recent := tailCandles(candles, 10)
	if len(recent) >= 5 {
		highs := make([]float64, len(recent))
		lows := make([]float64, len(recent))
		for i, c := range recent {
			highs[i] = c.High
			lows[i] = c.Low
		}
		highTrend := linearSlope(highs)
		lowTrend := linearSlope(lows)
		switch {
		case math.Abs(highTrend) < 0.5 && lowTrend > 0.5:
			patterns = append(patterns, "상승삼각형")
		case math.Abs(lowTrend) < 0.5 && highTrend < -0.5:
			patterns = append(patterns, "하락삼각형")
		}
	}
	return patterns
}

// trailingSMASeries returns, for every index i, the SMA of xs[:i+1] over
// window (nil before the window fills) — the full rolling series
// identifyChartPatterns needs to compare consecutive points.
func trailingSMASeries(xs []float64, window int) []*float64 {
	out := make([]*float64, len(xs))
	for i := range xs {
		out[i] = sma(xs[:i+1], window)
	}
	return out
}

// analyzeBreakoutSignals is _analyze_breakout_signals.
func analyzeBreakoutSignals(candles []Candle, supportLevels, resistanceLevels []float64) []BreakoutSignal {
	var signals []BreakoutSignal
	if len(candles) < 5 {
		return signals
	}
	currentPrice := candles[len(candles)-1].Close
	volumeWindow := tailCandles(candles, 20)
	var volSum float64
	for _, c := range volumeWindow {
		volSum += float64(c.Volume)
	}
	avgVolume := volSum / float64(len(volumeWindow))
	recentVolume := float64(candles[len(candles)-1].Volume)
	volumeConfirmed := recentVolume > avgVolume*1.5

	for _, resistance := range resistanceLevels {
		if currentPrice > resistance*1.01 {
			signals = append(signals, BreakoutSignal{Type: "저항선_돌파", Level: resistance, CurrentPrice: currentPrice, VolumeConfirmation: volumeConfirmed})
		}
	}
	for _, support := range supportLevels {
		if currentPrice < support*0.99 {
			signals = append(signals, BreakoutSignal{Type: "지지선_이탈", Level: support, CurrentPrice: currentPrice, VolumeConfirmation: volumeConfirmed})
		}
	}
	return signals
}

// AnalyzeChartPatterns is _analyze_chart_patterns, composing the helpers
// above into one ChartPatterns result.
func AnalyzeChartPatterns(candles []Candle) ChartPatterns {
	if len(candles) == 0 {
		return ChartPatterns{}
	}
	support := findSupportLevels(candles, 20)
	resistance := findResistanceLevels(candles, 20)
	direction, strength := analyzeTrend(candles)
	return ChartPatterns{
		SupportLevels:    support,
		ResistanceLevels: resistance,
		TrendDirection:   direction,
		TrendStrength:    strength,
		Patterns:         identifyChartPatterns(candles),
		BreakoutSignals:  analyzeBreakoutSignals(candles, support, resistance),
	}
}
