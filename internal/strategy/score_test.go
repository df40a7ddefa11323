package strategy

import (
	"math/rand"
	"testing"
)

func allTrueSet() IndicatorSet {
	return IndicatorSet{
		Price:       100,
		RSI:         50,
		MACDHist:    0.4,
		SMAShort:    101,
		SMALong:     99,
		EMAShort:    102,
		EMALong:     98,
		BBUpper:     110,
		BBLower:     90,
		BBWidth:     0.2,
		StochK:      60,
		StochD:      55,
		VolumeRatio: 2.5,
		Bullish:     true,
		Engulfing:   true,
	}
}

func allFalseSet() IndicatorSet {
	return IndicatorSet{
		Price:       120,
		RSI:         75,
		MACDHist:    -0.1,
		SMAShort:    98,
		SMALong:     99,
		EMAShort:    97,
		EMALong:     98,
		BBUpper:     110,
		BBLower:     90,
		BBWidth:     0.01,
		StochK:      85,
		StochD:      85,
		VolumeRatio: 0.8,
	}
}

func TestScoreBounds(t *testing.T) {
	if got := Score(allTrueSet(), 1.5); got != MaxScore {
		t.Fatalf("all conditions true: score = %d, want %d", got, MaxScore)
	}
	if got := Score(allFalseSet(), 1.5); got != 0 {
		t.Fatalf("all conditions false: score = %d, want 0", got)
	}
}

func TestScoreCategories(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*IndicatorSet)
		want   int
	}{
		{"ema trend", func(s *IndicatorSet) { s.EMAShort, s.EMALong = 2, 1 }, 20},
		{"sma trend", func(s *IndicatorSet) { s.SMAShort, s.SMALong = 2, 1 }, 10},
		{"rsi band", func(s *IndicatorSet) { s.RSI = 45 }, 15},
		{"rsi boundary excluded", func(s *IndicatorSet) { s.RSI = 30 }, 0},
		{"macd hist", func(s *IndicatorSet) { s.MACDHist = 0.01 }, 10},
		{"inside bands", func(s *IndicatorSet) { s.Price = 100 }, 10},
		{"wide bands", func(s *IndicatorSet) { s.BBWidth = 0.06 }, 10},
		{"stochastic", func(s *IndicatorSet) { s.StochK, s.StochD = 50, 40 }, 15},
		{"stochastic overbought", func(s *IndicatorSet) { s.StochK, s.StochD = 80, 40 }, 0},
		{"volume", func(s *IndicatorSet) { s.VolumeRatio = 1.51 }, 10},
		{"bullish", func(s *IndicatorSet) { s.Bullish = true }, 5},
		{"engulfing", func(s *IndicatorSet) { s.Engulfing = true }, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := allFalseSet()
			tt.mutate(&set)
			if got := Score(set, 1.5); got != tt.want {
				t.Fatalf("score = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreAlwaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		set := IndicatorSet{
			Price:       rng.Float64() * 200,
			RSI:         rng.Float64() * 100,
			MACDHist:    rng.NormFloat64(),
			SMAShort:    rng.Float64() * 200,
			SMALong:     rng.Float64() * 200,
			EMAShort:    rng.Float64() * 200,
			EMALong:     rng.Float64() * 200,
			BBUpper:     100 + rng.Float64()*100,
			BBLower:     rng.Float64() * 100,
			BBWidth:     rng.Float64() * 0.1,
			StochK:      rng.Float64() * 100,
			StochD:      rng.Float64() * 100,
			VolumeRatio: rng.Float64() * 3,
			Bullish:     rng.Intn(2) == 0,
			Engulfing:   rng.Intn(2) == 0,
		}
		score := Score(set, 1.5)
		if score < 0 || score > MaxScore {
			t.Fatalf("score %d out of range for %+v", score, set)
		}
	}
}

func TestShouldEnter(t *testing.T) {
	set := allTrueSet()
	if !ShouldEnter(set, 65, 65, 1.5) {
		t.Fatal("score at threshold with volume spike must enter")
	}
	if ShouldEnter(set, 64, 65, 1.5) {
		t.Fatal("score below threshold must not enter")
	}
	set.VolumeRatio = 1.5
	if ShouldEnter(set, 100, 65, 1.5) {
		t.Fatal("volume ratio must be strictly above the multiplier")
	}
}
