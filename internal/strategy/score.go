package strategy

const (
	MaxScore = 100

	rsiLower        = 30.0
	rsiUpper        = 70.0
	minBandWidth    = 0.05
	stochOverbought = 80.0
)

// Score sums independent point awards: trend 30, momentum 25, volatility 20,
// stochastic 15, volume 10, candle pattern 10.
func Score(s IndicatorSet, volumeMultiplier float64) int {
	score := 0

	if s.EMAShort > s.EMALong {
		score += 20
	}
	if s.SMAShort > s.SMALong {
		score += 10
	}

	if s.RSI > rsiLower && s.RSI < rsiUpper {
		score += 15
	}
	if s.MACDHist > 0 {
		score += 10
	}

	if s.Price > s.BBLower && s.Price < s.BBUpper {
		score += 10
	}
	if s.BBWidth > minBandWidth {
		score += 10
	}

	if s.StochK > s.StochD && s.StochK < stochOverbought {
		score += 15
	}

	if s.VolumeRatio > volumeMultiplier {
		score += 10
	}

	if s.Bullish {
		score += 5
	}
	if s.Engulfing {
		score += 5
	}

	return score
}

// ShouldEnter is the entry gate: score threshold plus a volume spike.
func ShouldEnter(s IndicatorSet, score, minScore int, volumeMultiplier float64) bool {
	return score >= minScore && s.VolumeRatio > volumeMultiplier
}
