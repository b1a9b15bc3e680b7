// Package analysis computes summary statistics over the close prices of a
// series and evaluates them against an optional alert threshold.
package analysis

import (
	"fmt"
	"math"

	"PriceSentinel/internal/calculator"
	"PriceSentinel/internal/model"
)

func closePrices(ts *model.TimeSeries) ([]float64, error) {
	closes, err := ts.Column(model.ColClose)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrNoCloseData, err)
	}
	return closes, nil
}

// AverageClose returns the mean of the defined close prices. A series whose
// close column is present but empty yields NaN without error; callers must
// tell that apart from ErrNoCloseData, which means the column is absent.
func AverageClose(ts *model.TimeSeries) (float64, error) {
	closes, err := closePrices(ts)
	if err != nil {
		return 0, err
	}
	return calculator.Mean(closes), nil
}

// AnalyzeFluctuation computes the close-price range and percent swing
// (max-min)/min*100. When threshold is nil the report carries no verdict;
// otherwise ThresholdExceeded is swing > *threshold. An empty series yields
// NaN statistics, which never exceed a threshold.
func AnalyzeFluctuation(ts *model.TimeSeries, threshold *float64) (*model.FluctuationReport, error) {
	closes, err := closePrices(ts)
	if err != nil {
		return nil, err
	}
	low, high, n := calculator.Range(closes)

	report := &model.FluctuationReport{
		Symbol:       ts.Symbol,
		Count:        n,
		AverageClose: calculator.Mean(closes),
		MinClose:     low,
		MaxClose:     high,
		PercentSwing: PercentSwing(low, high),
	}
	if threshold != nil {
		t := *threshold
		exceeded := report.PercentSwing > t
		report.Threshold = &t
		report.ThresholdExceeded = &exceeded
	}
	return report, nil
}

// PercentSwing returns (high-low)/low*100. A zero low yields +Inf for a
// positive spread; NaN inputs give NaN.
func PercentSwing(low, high float64) float64 {
	if math.IsNaN(low) || math.IsNaN(high) {
		return math.NaN()
	}
	return (high - low) / low * 100
}
