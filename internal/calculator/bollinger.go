package calculator

import "PriceSentinel/internal/model"

// BollingerBands holds the middle band and both envelopes, aligned with the
// input values.
type BollingerBands struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
}

// Bollinger computes bands at numStdDev rolling standard deviations around
// a window-bar simple moving average. A position is undefined wherever the
// average or the deviation is.
func Bollinger(values []float64, window int, numStdDev float64) (*BollingerBands, error) {
	ma, err := SMA(values, window)
	if err != nil {
		return nil, err
	}
	std, err := RollingStd(values, window)
	if err != nil {
		return nil, err
	}
	bands := &BollingerBands{
		Middle: ma,
		Upper:  make([]float64, len(values)),
		Lower:  make([]float64, len(values)),
	}
	for i := range values {
		width := std[i] * numStdDev
		bands.Upper[i] = ma[i] + width
		bands.Lower[i] = ma[i] - width
	}
	return bands, nil
}

// AddBollingerBands adds the MA, Upper_Band and Lower_Band columns. The MA
// column is the band's own average and is independent of Moving_Average.
func AddBollingerBands(ts *model.TimeSeries, window int, numStdDev float64) (*model.TimeSeries, error) {
	return apply(ts, bollingerBands(window, numStdDev))
}

func bollingerBands(window int, numStdDev float64) indicator {
	return indicator{
		name: "bollinger bands",
		compute: func(closes []float64) (columnSet, error) {
			bands, err := Bollinger(closes, window, numStdDev)
			if err != nil {
				return columnSet{}, err
			}
			cs := newColumnSet(model.ColBollingerMA, bands.Middle)
			cs.add(model.ColUpperBand, bands.Upper)
			cs.add(model.ColLowerBand, bands.Lower)
			return cs, nil
		},
	}
}
