package calculator

import (
	"fmt"
	"math"

	"PriceSentinel/internal/model"
)

// EMA computes an exponential moving average with smoothing factor
// 2/(window+1), seeded with the first defined value and without bias
// adjustment. Values before the seed are undefined. An undefined input
// after the seed repeats the previous average, and the old average keeps
// decaying by (1-alpha) per undefined input until the next defined one.
func EMA(values []float64, window int) ([]float64, error) {
	if window < 1 {
		return nil, fmt.Errorf("ema window %d: %w", window, model.ErrInvalidWindow)
	}
	alpha := 2.0 / float64(window+1)
	out := make([]float64, len(values))
	prev := math.NaN()
	oldWeight := 1.0
	for i, v := range values {
		switch {
		case math.IsNaN(prev):
			prev = v
		case math.IsNaN(v):
			oldWeight *= 1 - alpha
		default:
			oldWeight *= 1 - alpha
			prev = (oldWeight*prev + alpha*v) / (oldWeight + alpha)
			oldWeight = 1
		}
		out[i] = prev
	}
	return out, nil
}

// MACDLines holds the outputs of a MACD computation.
type MACDLines struct {
	Short  []float64
	Long   []float64
	MACD   []float64
	Signal []float64
}

// MACD computes EMA(short) - EMA(long) and its signal-window EMA.
func MACD(values []float64, short, long, signal int) (*MACDLines, error) {
	emaShort, err := EMA(values, short)
	if err != nil {
		return nil, fmt.Errorf("macd short: %w", err)
	}
	emaLong, err := EMA(values, long)
	if err != nil {
		return nil, fmt.Errorf("macd long: %w", err)
	}
	macd := make([]float64, len(values))
	for i := range values {
		macd[i] = emaShort[i] - emaLong[i]
	}
	sig, err := EMA(macd, signal)
	if err != nil {
		return nil, fmt.Errorf("macd signal: %w", err)
	}
	return &MACDLines{Short: emaShort, Long: emaLong, MACD: macd, Signal: sig}, nil
}

// EMAColumn names the EMA column for a window, e.g. EMA_12.
func EMAColumn(window int) string {
	return fmt.Sprintf("EMA_%d", window)
}

// AddMACD adds EMA_<short>, EMA_<long>, MACD and Signal_Line.
func AddMACD(ts *model.TimeSeries, short, long, signal int) (*model.TimeSeries, error) {
	return apply(ts, movingAverageConvergence(short, long, signal))
}

func movingAverageConvergence(short, long, signal int) indicator {
	return indicator{
		name: "macd",
		compute: func(closes []float64) (columnSet, error) {
			lines, err := MACD(closes, short, long, signal)
			if err != nil {
				return columnSet{}, err
			}
			cs := newColumnSet(EMAColumn(short), lines.Short)
			cs.add(EMAColumn(long), lines.Long)
			cs.add(model.ColMACD, lines.MACD)
			cs.add(model.ColSignalLine, lines.Signal)
			return cs, nil
		},
	}
}
