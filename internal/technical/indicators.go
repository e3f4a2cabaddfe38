package technical

import "math"

func closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// sma returns the simple moving average of the trailing window values of
// xs, or nil if xs is shorter than window.
func sma(xs []float64, window int) *float64 {
	if len(xs) < window {
		return nil
	}
	sum := 0.0
	for _, v := range xs[len(xs)-window:] {
		sum += v
	}
	v := sum / float64(window)
	return &v
}

// emaSeries is pandas' close.ewm(span=span).mean(): a recursively
// adjustment-corrected exponential moving average over the whole series,
// returned in full so macd can build its signal line over the whole MACD
// series.
func emaSeries(xs []float64, span int) []float64 {
	if len(xs) == 0 {
		return nil
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out := make([]float64, len(xs))

	// pandas' default adjust=True recurrence:
	// y_t = sum_{i=0..t} (1-alpha)^i * x_{t-i} / sum_{i=0..t} (1-alpha)^i
	for t := range xs {
		num, den := 0.0, 0.0
		w := 1.0
		for i := t; i >= 0; i-- {
			num += w * xs[i]
			den += w
			w *= 1 - alpha
		}
		out[t] = num / den
	}
	return out
}

func ema(xs []float64, span int) *float64 {
	if len(xs) < span {
		return nil
	}
	series := emaSeries(xs, span)
	v := series[len(series)-1]
	return &v
}

// rsi is _calculate_rsi: Wilder-style RSI using a simple rolling mean of
// gains/losses over period.
func rsi(xs []float64, period int) *float64 {
	if len(xs) < period+1 {
		return nil
	}
	gains := make([]float64, 0, len(xs)-1)
	losses := make([]float64, 0, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		d := xs[i] - xs[i-1]
		if d > 0 {
			gains = append(gains, d)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -d)
		}
	}
	avgGain := sma(gains, period)
	avgLoss := sma(losses, period)
	if avgGain == nil || avgLoss == nil {
		return nil
	}
	if *avgLoss == 0 {
		v := 100.0
		return &v
	}
	rs := *avgGain / *avgLoss
	v := 100 - (100 / (1 + rs))
	return &v
}

// macd is _calculate_macd: EMA(fast) - EMA(slow), its signal EMA, and the
// histogram difference, all evaluated at the series' last point.
func macd(xs []float64, fast, slow, signal int) (macdVal, signalVal, histVal *float64) {
	if len(xs) < slow {
		return nil, nil, nil
	}
	fastSeries := emaSeries(xs, fast)
	slowSeries := emaSeries(xs, slow)
	macdSeries := make([]float64, len(xs))
	for i := range xs {
		macdSeries[i] = fastSeries[i] - slowSeries[i]
	}
	signalSeries := emaSeries(macdSeries, signal)

	m := macdSeries[len(macdSeries)-1]
	s := signalSeries[len(signalSeries)-1]
	h := m - s
	return &m, &s, &h
}

// bollinger is _calculate_bollinger_bands.
func bollinger(xs []float64, period int, stdDev float64) (upper, middle, lower *float64) {
	mid := sma(xs, period)
	if mid == nil {
		return nil, nil, nil
	}
	window := xs[len(xs)-period:]
	variance := 0.0
	for _, v := range window {
		variance += (v - *mid) * (v - *mid)
	}
	std := math.Sqrt(variance / float64(period))
	u := *mid + std*stdDev
	l := *mid - std*stdDev
	return &u, mid, &l
}

// stochastic is _calculate_stochastic.
func stochastic(candles []Candle, kPeriod, dPeriod int) (k, d *float64) {
	if len(candles) < kPeriod {
		return nil, nil
	}
	kSeries := make([]float64, 0, len(candles)-kPeriod+1)
	for end := kPeriod; end <= len(candles); end++ {
		window := candles[end-kPeriod : end]
		lowestLow, highestHigh := window[0].Low, window[0].High
		for _, c := range window {
			if c.Low < lowestLow {
				lowestLow = c.Low
			}
			if c.High > highestHigh {
				highestHigh = c.High
			}
		}
		closeV := window[len(window)-1].Close
		if highestHigh == lowestLow {
			kSeries = append(kSeries, 0)
			continue
		}
		kSeries = append(kSeries, 100*((closeV-lowestLow)/(highestHigh-lowestLow)))
	}
	kv := kSeries[len(kSeries)-1]
	dv := sma(kSeries, dPeriod)
	if dv == nil {
		return &kv, nil
	}
	return &kv, dv
}

// CalculateIndicators is _calculate_technical_indicators, computing every
// indicator the candle series is long enough to support.
func CalculateIndicators(candles []Candle) Indicators {
	if len(candles) == 0 {
		return Indicators{}
	}
	close := closes(candles)

	ind := Indicators{
		SMA20: sma(close, 20),
		SMA60: sma(close, 60),
		EMA12: ema(close, 12),
		EMA26: ema(close, 26),
	}
	if len(close) >= 14 {
		ind.RSI = rsi(close, 14)
	}
	if len(close) >= 26 {
		ind.MACD, ind.MACDSignal, ind.MACDHistogram = macd(close, 12, 26, 9)
	}
	if len(close) >= 20 {
		ind.BollingerUpper, ind.BollingerMiddle, ind.BollingerLower = bollinger(close, 20, 2)
	}
	if len(close) >= 14 {
		ind.StochasticK, ind.StochasticD = stochastic(candles, 14, 3)
	}
	return ind
}
