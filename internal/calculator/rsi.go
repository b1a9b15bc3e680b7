package calculator

import (
	"math"

	"PriceSentinel/internal/model"
)

// Diff returns bar-to-bar differences. Position 0 is undefined.
func Diff(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i] - values[i-1]
	}
	return out
}

// RSI computes the Relative Strength Index using simple rolling means of
// gains and losses over window bars. An undefined difference (the first
// bar) counts as neither gain nor loss.
//
// The value is undefined wherever the mean loss is zero, including the
// flat case where the mean gain is zero too.
func RSI(values []float64, window int) ([]float64, error) {
	diff := Diff(values)
	gain := make([]float64, len(diff))
	loss := make([]float64, len(diff))
	for i, d := range diff {
		if d > 0 {
			gain[i] = d
		} else if d < 0 {
			loss[i] = -d
		}
	}

	meanGain, err := SMA(gain, window)
	if err != nil {
		return nil, err
	}
	meanLoss, err := SMA(loss, window)
	if err != nil {
		return nil, err
	}

	out := undefinedSlice(len(values))
	for i := range out {
		if math.IsNaN(meanGain[i]) || math.IsNaN(meanLoss[i]) || meanLoss[i] == 0 {
			continue
		}
		rs := meanGain[i] / meanLoss[i]
		out[i] = 100.0 - 100.0/(1.0+rs)
	}
	return out, nil
}

// AddRSI adds the RSI column.
func AddRSI(ts *model.TimeSeries, window int) (*model.TimeSeries, error) {
	return apply(ts, relativeStrength(window))
}

func relativeStrength(window int) indicator {
	return indicator{
		name: "rsi",
		compute: func(closes []float64) (columnSet, error) {
			rsi, err := RSI(closes, window)
			if err != nil {
				return columnSet{}, err
			}
			return newColumnSet(model.ColRSI, rsi), nil
		},
	}
}
