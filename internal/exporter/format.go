package exporter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"PriceSentinel/internal/model"
)

// FormatAverage renders the average close line.
func FormatAverage(avg float64) string {
	if math.IsNaN(avg) {
		return "Average close price: n/a (no data)"
	}
	return fmt.Sprintf("Average close price for the period: %.2f", avg)
}

// FormatFluctuation renders the threshold verdict. It returns "" when no
// threshold was supplied.
func FormatFluctuation(r *model.FluctuationReport) string {
	if r.ThresholdExceeded == nil {
		return ""
	}
	threshold := strconv.FormatFloat(*r.Threshold, 'f', -1, 64)
	if *r.ThresholdExceeded {
		return fmt.Sprintf("Alert: %s prices moved more than %s%% over the period. "+
			"Min close: %.2f, max close: %.2f, total swing: %.2f%%",
			r.Symbol, threshold, r.MinClose, r.MaxClose, r.PercentSwing)
	}
	return fmt.Sprintf("%s prices moved less than %s%%. Swing: %.2f%%",
		r.Symbol, threshold, r.PercentSwing)
}

// FormatSummary renders the console summary of a run.
func FormatSummary(r *model.FluctuationReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s: %d bars\n", r.Symbol, r.Count))
	b.WriteString(FormatAverage(r.AverageClose))
	b.WriteString("\n")
	if r.Count > 0 {
		b.WriteString(fmt.Sprintf("Close range: %.2f - %.2f (swing %.2f%%)\n", r.MinClose, r.MaxClose, r.PercentSwing))
	}
	if line := FormatFluctuation(r); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	} else {
		b.WriteString("No fluctuation threshold supplied, alert evaluation skipped.\n")
	}
	return b.String()
}
