package technical

// GenerateTradingSignals is _generate_trading_signals: scores RSI/MACD
// indicator votes, sums strengths by direction, and derives an overall
// call plus stop-loss/target-price bands.
func GenerateTradingSignals(candles []Candle, ind Indicators) TradingSignals {
	if len(candles) == 0 {
		return TradingSignals{OverallSignal: "중립"}
	}
	currentPrice := candles[len(candles)-1].Close

	var signals []Signal
	if ind.RSI != nil {
		switch {
		case *ind.RSI < 30:
			signals = append(signals, Signal{Indicator: "RSI", Signal: "매수", Strength: 0.8, Value: *ind.RSI, Reason: "과매도"})
		case *ind.RSI > 70:
			signals = append(signals, Signal{Indicator: "RSI", Signal: "매도", Strength: 0.8, Value: *ind.RSI, Reason: "과매수"})
		default:
			signals = append(signals, Signal{Indicator: "RSI", Signal: "중립", Strength: 0.3, Value: *ind.RSI, Reason: "중립"})
		}
	}

	if ind.MACD != nil && ind.MACDSignal != nil {
		switch {
		case *ind.MACD > *ind.MACDSignal && ind.MACDHistogram != nil && *ind.MACDHistogram > 0:
			signals = append(signals, Signal{Indicator: "MACD", Signal: "매수", Strength: 0.7, Value: *ind.MACD, Reason: "상승교차"})
		case *ind.MACD < *ind.MACDSignal && ind.MACDHistogram != nil && *ind.MACDHistogram < 0:
			signals = append(signals, Signal{Indicator: "MACD", Signal: "매도", Strength: 0.7, Value: *ind.MACD, Reason: "하락교차"})
		default:
			signals = append(signals, Signal{Indicator: "MACD", Signal: "중립", Strength: 0.3, Value: *ind.MACD, Reason: "중립"})
		}
	}

	var buyStrength, sellStrength, neutralStrength float64
	for _, s := range signals {
		switch s.Signal {
		case "매수":
			buyStrength += s.Strength
		case "매도":
			sellStrength += s.Strength
		case "중립":
			neutralStrength += s.Strength
		}
	}
	total := buyStrength + sellStrength + neutralStrength
	confidence := 0.0
	if total > 0 {
		confidence = max(buyStrength, sellStrength) / total
	}

	var overall string
	switch {
	case buyStrength > sellStrength+0.5:
		if buyStrength > 2.5 {
			overall = "강력매수"
		} else {
			overall = "매수"
		}
	case sellStrength > buyStrength+0.5:
		if sellStrength > 2.5 {
			overall = "강력매도"
		} else {
			overall = "매도"
		}
	default:
		overall = "중립"
	}

	var stopLoss, targetPrice *float64
	var entryPoints, exitPoints []float64
	switch overall {
	case "매수", "강력매수":
		sl := currentPrice * 0.95
		stopLoss = &sl
		mult := 1.1
		if overall == "강력매수" {
			mult = 1.15
		}
		tp := currentPrice * mult
		targetPrice = &tp
		entryPoints = append(entryPoints, currentPrice)
	case "매도", "강력매도":
		mult := 0.95
		if overall == "강력매도" {
			mult = 0.9
		}
		tp := currentPrice * mult
		targetPrice = &tp
		exitPoints = append(exitPoints, currentPrice)
	}

	return TradingSignals{
		OverallSignal: overall,
		Confidence:    round2(confidence),
		Signals:       signals,
		EntryPoints:   entryPoints,
		ExitPoints:    exitPoints,
		StopLoss:      stopLoss,
		TargetPrice:   targetPrice,
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

// AnalyzeMarketSentiment is _analyze_market_sentiment: a trailing-5-vs-20
// day average volume comparison, nothing else is wired (foreign/
// institution flow require a data feed this corpus doesn't model, so they
// stay nil as the Python's own placeholders do).
func AnalyzeMarketSentiment(candles []Candle) MarketSentiment {
	if len(candles) == 0 {
		return MarketSentiment{VolumeTrend: "보통", PriceVolumeRelation: "중립"}
	}
	volumeTrend := "보통"
	if len(candles) >= 20 {
		recent := tailCandles(candles, 5)
		base := tailCandles(candles, 20)
		var recentSum, baseSum float64
		for _, c := range recent {
			recentSum += float64(c.Volume)
		}
		for _, c := range base {
			baseSum += float64(c.Volume)
		}
		recentAvg := recentSum / float64(len(recent))
		baseAvg := baseSum / float64(len(base))
		switch {
		case recentAvg > baseAvg*1.2:
			volumeTrend = "증가"
		case recentAvg < baseAvg*0.8:
			volumeTrend = "감소"
		}
	}
	return MarketSentiment{VolumeTrend: volumeTrend, PriceVolumeRelation: "중립"}
}
