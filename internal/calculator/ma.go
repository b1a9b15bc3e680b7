package calculator

import (
	"fmt"
	"math"

	"PriceSentinel/internal/model"
)

// SMA computes the trailing simple moving average of values over window
// bars, the current bar included. The first window-1 positions are
// undefined, as is any window that contains an undefined value.
func SMA(values []float64, window int) ([]float64, error) {
	if window < 1 {
		return nil, fmt.Errorf("sma window %d: %w", window, model.ErrInvalidWindow)
	}
	out := undefinedSlice(len(values))
	for i := window - 1; i < len(values); i++ {
		sum := 0.0
		for _, v := range values[i-window+1 : i+1] {
			sum += v
		}
		// NaN propagates through the sum.
		out[i] = sum / float64(window)
	}
	return out, nil
}

// AddMovingAverage adds the Moving_Average column computed over Close.
func AddMovingAverage(ts *model.TimeSeries, window int) (*model.TimeSeries, error) {
	return apply(ts, movingAverage(window))
}

func movingAverage(window int) indicator {
	return indicator{
		name: "moving average",
		compute: func(closes []float64) (columnSet, error) {
			ma, err := SMA(closes, window)
			if err != nil {
				return columnSet{}, err
			}
			return newColumnSet(model.ColMovingAverage, ma), nil
		},
	}
}

func undefinedSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
