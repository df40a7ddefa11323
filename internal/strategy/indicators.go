package strategy

import (
	"errors"
	"spotbot/internal/models"
)

var ErrInsufficientData = errors.New("Недостаточно свечей для расчёта индикаторов.")

// Periods holds the window lengths of every indicator. Window is the number
// of trailing candles a calculation requires.
type Periods struct {
	Window       int
	RSI          int
	MACDFast     int
	MACDSlow     int
	MACDSignal   int
	SMAShort     int
	SMALong      int
	EMAShort     int
	EMALong      int
	BB           int
	BBDeviations float64
	StochK       int
	StochD       int
	VolumeAvg    int
}

// IndicatorSet is computed from one trailing window and never updated
// incrementally.
//
// EMAShort/EMALong are simple means over their windows and StochD always
// equals the mean of StochK repeated StochD times. Both are kept as is:
// entry scores depend on this exact arithmetic.
//
// All means are plain left to right sums divided by the count. Libraries
// that sum pairwise (numpy, for one) agree only to within a few ulps, so a
// value sitting exactly on a scoring threshold may land on the other side.
type IndicatorSet struct {
	Price       float64
	Volume      float64
	RSI         float64
	MACD        float64
	MACDSignal  float64
	MACDHist    float64
	SMAShort    float64
	SMALong     float64
	EMAShort    float64
	EMALong     float64
	BBUpper     float64
	BBLower     float64
	BBWidth     float64
	StochK      float64
	StochD      float64
	VolumeAvg   float64
	VolumeRatio float64
	Bullish     bool
	Engulfing   bool
}

func (s IndicatorSet) Map() map[string]interface{} {
	return map[string]interface{}{
		"price":        s.Price,
		"volume":       s.Volume,
		"rsi":          s.RSI,
		"macd":         s.MACD,
		"macd_signal":  s.MACDSignal,
		"macd_hist":    s.MACDHist,
		"sma_short":    s.SMAShort,
		"sma_long":     s.SMALong,
		"ema_short":    s.EMAShort,
		"ema_long":     s.EMALong,
		"bb_upper":     s.BBUpper,
		"bb_lower":     s.BBLower,
		"bb_width":     s.BBWidth,
		"stoch_k":      s.StochK,
		"stoch_d":      s.StochD,
		"volume_avg":   s.VolumeAvg,
		"volume_ratio": s.VolumeRatio,
		"bullish":      s.Bullish,
		"engulfing":    s.Engulfing,
	}
}

// Calculate computes the indicator set over the last p.Window candles.
func Calculate(candles []models.Candle, p Periods) (IndicatorSet, error) {
	if p.Window <= 0 || len(candles) < p.Window {
		return IndicatorSet{}, ErrInsufficientData
	}
	window := candles[len(candles)-p.Window:]

	n := len(window)
	opens := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range window {
		opens[i] = c.Open
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
		volumes[i] = c.Volume
	}

	set := IndicatorSet{
		Price:  closes[n-1],
		Volume: volumes[n-1],
	}

	set.RSI = rsi(closes, p.RSI)

	set.MACD = mean(tail(closes, p.MACDFast)) - mean(tail(closes, p.MACDSlow))
	set.MACDSignal = mean(tail(closes, p.MACDSignal))
	set.MACDHist = set.MACD - set.MACDSignal

	set.SMAShort = mean(tail(closes, p.SMAShort))
	set.SMALong = mean(tail(closes, p.SMALong))
	set.EMAShort = mean(tail(closes, p.EMAShort))
	set.EMALong = mean(tail(closes, p.EMALong))

	center := set.SMALong
	std := stddev(tail(closes, p.BB))
	set.BBUpper = center + std*p.BBDeviations
	set.BBLower = center - std*p.BBDeviations
	set.BBWidth = (set.BBUpper - set.BBLower) / center

	lowest := minOf(tail(lows, p.StochK))
	highest := maxOf(tail(highs, p.StochK))
	if highest-lowest != 0 {
		set.StochK = 100 * ((closes[n-1] - lowest) / (highest - lowest))
	}
	set.StochD = mean(repeat(set.StochK, p.StochD))

	set.VolumeAvg = mean(tail(volumes, p.VolumeAvg))
	set.VolumeRatio = volumes[n-1] / set.VolumeAvg

	set.Bullish = isBullish(opens[n-1], closes[n-1])
	set.Engulfing = isEngulfing(opens, closes)

	return set, nil
}

// rsi filters the deltas into gains and losses first and then averages the
// first period elements of each list, not the most recent ones.
func rsi(closes []float64, period int) float64 {
	var gains, losses []float64
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		switch {
		case delta > 0:
			gains = append(gains, delta)
		case delta < 0:
			losses = append(losses, -delta)
		}
	}

	avgGain := 0.0
	if len(gains) > 0 {
		avgGain = mean(head(gains, period))
	}
	avgLoss := 1.0
	if len(losses) > 0 {
		avgLoss = mean(head(losses, period))
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

func isBullish(open, close float64) bool {
	return close > open
}

func isEngulfing(opens, closes []float64) bool {
	n := len(closes)
	if n < 3 {
		return false
	}
	return closes[n-2] < opens[n-2] &&
		closes[n-1] > opens[n-1] &&
		closes[n-1] > opens[n-2] &&
		opens[n-1] < closes[n-2]
}
