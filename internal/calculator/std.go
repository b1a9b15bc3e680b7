package calculator

import (
	"fmt"
	"math"

	"PriceSentinel/internal/model"
)

// RollingStd computes the trailing sample standard deviation (n-1
// denominator) over window bars. Positions without a full window, windows
// holding an undefined value, and every position when window is 1 are
// undefined.
//
// Deviations are taken relative to the first value of each window, so a
// constant window yields exactly 0.
func RollingStd(values []float64, window int) ([]float64, error) {
	if window < 1 {
		return nil, fmt.Errorf("std window %d: %w", window, model.ErrInvalidWindow)
	}
	out := undefinedSlice(len(values))
	if window == 1 {
		return out, nil
	}
	n := float64(window)
	for i := window - 1; i < len(values); i++ {
		win := values[i-window+1 : i+1]
		ref := win[0]
		sum := 0.0
		for _, v := range win {
			sum += v - ref
		}
		if math.IsNaN(sum) {
			continue
		}
		mean := sum / n
		ss := 0.0
		for _, v := range win {
			d := v - ref - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / (n - 1))
	}
	return out, nil
}

// AddStandardDeviation adds the Close_STD column.
func AddStandardDeviation(ts *model.TimeSeries, window int) (*model.TimeSeries, error) {
	return apply(ts, standardDeviation(window))
}

func standardDeviation(window int) indicator {
	return indicator{
		name: "standard deviation",
		compute: func(closes []float64) (columnSet, error) {
			std, err := RollingStd(closes, window)
			if err != nil {
				return columnSet{}, err
			}
			return newColumnSet(model.ColCloseSTD, std), nil
		},
	}
}
