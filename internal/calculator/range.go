package calculator

import "math"

// Range scans values and returns the lowest and highest defined value along
// with the number of defined values. With no defined values both bounds are
// NaN.
func Range(values []float64) (low, high float64, n int) {
	low = math.Inf(1)
	high = math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
		n++
	}
	if n == 0 {
		return math.NaN(), math.NaN(), 0
	}
	return low, high, n
}

// Mean returns the arithmetic mean of the defined values, or NaN when there
// are none.
func Mean(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
