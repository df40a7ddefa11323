package strategy

import "math"

// tail returns the last k values; k <= 0 or k >= len selects everything.
func tail(values []float64, k int) []float64 {
	if k <= 0 || k >= len(values) {
		return values
	}
	return values[len(values)-k:]
}

func head(values []float64, k int) []float64 {
	if k <= 0 || k >= len(values) {
		return values
	}
	return values[:k]
}

func repeat(value float64, times int) []float64 {
	out := make([]float64, times)
	for i := range out {
		out[i] = value
	}
	return out
}

// mean sums left to right. Pairwise or compensated summation can differ in
// the last bits.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

func minOf(values []float64) float64 {
	result := math.Inf(1)
	for _, v := range values {
		if v < result {
			result = v
		}
	}
	return result
}

func maxOf(values []float64) float64 {
	result := math.Inf(-1)
	for _, v := range values {
		if v > result {
			result = v
		}
	}
	return result
}

// Volatility is stddev(closes)/mean(closes).
func Volatility(closes []float64) (float64, error) {
	if len(closes) == 0 {
		return 0, ErrInsufficientData
	}
	m := mean(closes)
	if m == 0 {
		return 0, ErrInsufficientData
	}
	return stddev(closes) / m, nil
}
