package model

// FluctuationReport summarizes the close-price swing of a series.
// ThresholdExceeded is nil when no threshold was supplied, which means no
// evaluation took place (not "false").
type FluctuationReport struct {
	Symbol            string
	Count             int
	AverageClose      float64
	MinClose          float64
	MaxClose          float64
	PercentSwing      float64
	Threshold         *float64
	ThresholdExceeded *bool
}

// Alert reports whether the threshold was evaluated and exceeded.
func (r *FluctuationReport) Alert() bool {
	return r.ThresholdExceeded != nil && *r.ThresholdExceeded
}
