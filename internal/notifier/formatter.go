package notifier

import (
	"fmt"
	"html"
	"math"
	"regexp"
	"strings"
	"time"

	"PriceSentinel/internal/model"
	"PriceSentinel/internal/recorder"
)

func num(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

func writeLatest(b *strings.Builder, ts *model.TimeSeries) {
	if ts == nil || ts.Empty() {
		return
	}
	b.WriteString(fmt.Sprintf("\n📈 <b>Latest</b> (%s)\n", ts.Time(ts.Len()-1).Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Close: %s | MA: %s\n", num(ts.Latest(model.ColClose)), num(ts.Latest(model.ColMovingAverage))))
	b.WriteString(fmt.Sprintf("RSI: %s\n", num(ts.Latest(model.ColRSI))))
	b.WriteString(fmt.Sprintf("MACD: %s | Signal: %s\n", num(ts.Latest(model.ColMACD)), num(ts.Latest(model.ColSignalLine))))
	b.WriteString(fmt.Sprintf("Bands: %s / %s / %s\n",
		num(ts.Latest(model.ColLowerBand)), num(ts.Latest(model.ColBollingerMA)), num(ts.Latest(model.ColUpperBand))))
}

// FormatAlert formats a threshold breach into a Telegram message.
func FormatAlert(r *model.FluctuationReport, latest *model.TimeSeries) string {
	var b strings.Builder
	symbol := html.EscapeString(r.Symbol)

	b.WriteString(fmt.Sprintf("🚨 <b>PriceSentinel alert</b> | %s\n\n", symbol))
	threshold := "n/a"
	if r.Threshold != nil {
		threshold = fmt.Sprintf("%g%%", *r.Threshold)
	}
	b.WriteString(fmt.Sprintf("%s moved <b>%.2f%%</b> over %d bars (threshold %s)\n",
		symbol, r.PercentSwing, r.Count, threshold))
	b.WriteString(fmt.Sprintf("Min close: %s | Max close: %s\n", num(r.MinClose), num(r.MaxClose)))
	b.WriteString(fmt.Sprintf("Average close: %s\n", num(r.AverageClose)))
	writeLatest(&b, latest)
	return b.String()
}

// FormatReport formats a run summary for the /report command.
func FormatReport(r *model.FluctuationReport, latest *model.TimeSeries) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s report</b> | %s\n\n", html.EscapeString(r.Symbol), time.Now().Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Bars: %d\n", r.Count))
	b.WriteString(fmt.Sprintf("Average close: %s\n", num(r.AverageClose)))
	if r.Count > 0 {
		b.WriteString(fmt.Sprintf("Range: %s - %s (swing %.2f%%)\n", num(r.MinClose), num(r.MaxClose), r.PercentSwing))
	}
	switch {
	case r.ThresholdExceeded == nil:
		b.WriteString("Threshold: not set\n")
	case *r.ThresholdExceeded:
		b.WriteString(fmt.Sprintf("Threshold %g%%: <b>exceeded</b> 🚨\n", *r.Threshold))
	default:
		b.WriteString(fmt.Sprintf("Threshold %g%%: within ✅\n", *r.Threshold))
	}
	writeLatest(&b, latest)
	return b.String()
}

// FormatLastRun formats a recorded run for the /last command.
func FormatLastRun(rec *recorder.RunRecord) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗂 <b>Last run</b> | %s\n\n", html.EscapeString(rec.Symbol)))
	b.WriteString(fmt.Sprintf("Time: %s\n", rec.RecordedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Range: %s (%s, %d bars)\n", html.EscapeString(rec.Range), rec.Source, rec.Bars))
	b.WriteString(fmt.Sprintf("Average close: %s\n", num(rec.AverageClose)))
	b.WriteString(fmt.Sprintf("Swing: %s%%\n", num(rec.PercentSwing)))
	if rec.Alert() {
		b.WriteString("Alert: yes 🚨\n")
	}
	b.WriteString(fmt.Sprintf("RSI: %s | MACD: %s\n", num(rec.LatestRSI), num(rec.LatestMACD)))
	return b.String()
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	return "🤖 <b>PriceSentinel commands</b>\n\n" +
		"/report [TICKER] - run the analysis now\n" +
		"/last [TICKER] - show the last recorded run\n" +
		"/help - show this message"
}

var tagPattern = regexp.MustCompile(`</?[a-z]+>`)

func stripTags(s string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(s, ""))
}
