package strategy

import (
	"errors"
	"math"
	"spotbot/internal/models"
	"testing"
	"time"
)

func defaultPeriods(window int) Periods {
	return Periods{
		Window:       window,
		RSI:          10,
		MACDFast:     10,
		MACDSlow:     26,
		MACDSignal:   9,
		SMAShort:     9,
		SMALong:      21,
		EMAShort:     6,
		EMALong:      18,
		BB:           20,
		BBDeviations: 1.8,
		StochK:       14,
		StochD:       3,
		VolumeAvg:    20,
	}
}

func candlesFromCloses(closes []float64) []models.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		open := c - 0.5
		if i > 0 {
			open = closes[i-1]
		}
		out[i] = models.Candle{
			OpenTime:  start.Add(time.Duration(i) * 5 * time.Minute),
			Open:      open,
			High:      math.Max(open, c) + 1,
			Low:       math.Min(open, c) - 1,
			Close:     c,
			Volume:    100 + float64(i%7)*10,
			CloseTime: start.Add(time.Duration(i+1)*5*time.Minute - time.Millisecond),
		}
	}
	return out
}

func TestCalculateInsufficientData(t *testing.T) {
	candles := candlesFromCloses([]float64{1, 2, 3})
	_, err := Calculate(candles, defaultPeriods(4))
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestCalculateRSIMonotonicWindow(t *testing.T) {
	closes := make([]float64, 14)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	set, err := Calculate(candlesFromCloses(closes), defaultPeriods(14))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// no losses: avg_loss falls back to 1, avg_gain is 1, rs = 1
	avgGain := 1.0
	want := 100 - 100/(1+avgGain/1)
	if set.RSI != want {
		t.Fatalf("rsi = %v, want %v", set.RSI, want)
	}
}

func TestCalculateRSIUsesFirstFilteredElements(t *testing.T) {
	// gains 1,2,3,4 then loss 5, periods of 2 take the oldest two gains
	closes := []float64{10, 11, 13, 16, 20, 15}
	p := defaultPeriods(len(closes))
	p.RSI = 2
	set, err := Calculate(candlesFromCloses(closes), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rs := 1.5 / 5.0
	want := 100 - 100/(1+rs)
	if set.RSI != want {
		t.Fatalf("rsi = %v, want %v", set.RSI, want)
	}
}

func TestCalculateMovingAverages(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	p := defaultPeriods(len(closes))
	p.SMAShort = 2
	p.SMALong = 4
	p.EMAShort = 3
	p.EMALong = 50
	p.MACDFast = 2
	p.MACDSlow = 5
	p.MACDSignal = 3

	set, err := Calculate(candlesFromCloses(closes), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"sma_short", set.SMAShort, 9.5},
		{"sma_long", set.SMALong, 8.5},
		{"ema_short", set.EMAShort, 9},
		{"ema_long", set.EMALong, 5.5},
		{"macd", set.MACD, 9.5 - 8},
		{"macd_signal", set.MACDSignal, 9},
		{"macd_hist", set.MACDHist, 1.5 - 9},
		{"price", set.Price, 10},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestCalculateBollingerAroundSMALong(t *testing.T) {
	closes := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	p := defaultPeriods(len(closes))
	p.BB = 8
	p.SMALong = 8
	p.BBDeviations = 2

	set, err := Calculate(candlesFromCloses(closes), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// mean 5, population stddev 2
	if set.BBUpper != 9 || set.BBLower != 1 {
		t.Fatalf("bands = [%v, %v], want [1, 9]", set.BBLower, set.BBUpper)
	}
	if set.BBWidth != 8.0/5.0 {
		t.Fatalf("width = %v, want 1.6", set.BBWidth)
	}
}

func TestCalculateStochasticZeroRange(t *testing.T) {
	candles := make([]models.Candle, 5)
	for i := range candles {
		candles[i] = models.Candle{Open: 10, High: 10, Low: 10, Close: 10, Volume: 1}
	}
	set, err := Calculate(candles, defaultPeriods(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.StochK != 0 || set.StochD != 0 {
		t.Fatalf("stoch = %v/%v, want 0/0", set.StochK, set.StochD)
	}
	if set.Bullish || set.Engulfing {
		t.Fatal("flat candles must not be bullish or engulfing")
	}
}

func TestCalculateVolumeRatio(t *testing.T) {
	candles := make([]models.Candle, 25)
	for i := range candles {
		candles[i] = models.Candle{Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}
	}
	candles[24].Volume = 48
	set, err := Calculate(candles, defaultPeriods(25))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// last 20 volumes: 19 x 10 + 48
	wantAvg := (19*10.0 + 48) / 20
	if set.VolumeAvg != wantAvg {
		t.Fatalf("volume avg = %v, want %v", set.VolumeAvg, wantAvg)
	}
	if set.VolumeRatio != 48/wantAvg {
		t.Fatalf("volume ratio = %v, want %v", set.VolumeRatio, 48/wantAvg)
	}
}

func TestEngulfingPattern(t *testing.T) {
	opens := []float64{5, 10, 7.5}
	closes := []float64{5, 8, 10.5}
	if !isEngulfing(opens, closes) {
		t.Fatal("expected engulfing pattern")
	}
	if isEngulfing(opens[1:], closes[1:]) {
		t.Fatal("two candles are not enough for the pattern")
	}

	// current open above previous close
	if isEngulfing([]float64{5, 10, 8.5}, []float64{5, 8, 10.5}) {
		t.Fatal("open above prior close is not engulfing")
	}
}

func TestCalculateDeterministic(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + 7*math.Sin(float64(i)/5) + float64(i%3)
	}
	candles := candlesFromCloses(closes)

	first, err := Calculate(candles, defaultPeriods(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Calculate(candles, defaultPeriods(100))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first != again {
			t.Fatalf("indicator set changed between runs: %+v vs %+v", first, again)
		}
	}
}

func TestCalculateUsesTrailingWindow(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	candles := candlesFromCloses(closes)
	full, err := Calculate(candles, defaultPeriods(30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	trimmed, err := Calculate(candles[30:], defaultPeriods(30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if full != trimmed {
		t.Fatal("only the trailing window may influence the result")
	}
}

func TestVolatility(t *testing.T) {
	vol, err := Volatility([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vol != 2.0/5.0 {
		t.Fatalf("volatility = %v, want 0.4", vol)
	}
	if _, err := Volatility(nil); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestMeanSumsLeftToRight(t *testing.T) {
	// 1e16+1 rounds back to 1e16, so the first 1 is lost in a running sum;
	// an exact or pairwise sum would give 0.5
	if got := mean([]float64{1e16, 1, -1e16, 1}); got != 0.25 {
		t.Fatalf("mean = %v, want 0.25 from a left to right sum", got)
	}
	if got := mean([]float64{0.1, 0.2, 0.3}); math.Abs(got-0.2) > 1e-15 {
		t.Fatalf("mean = %v, want 0.2 within rounding", got)
	}
	if !math.IsNaN(mean(nil)) {
		t.Fatal("mean of nothing must be NaN")
	}
}
