package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"PriceSentinel/internal/calculator"
	"PriceSentinel/internal/collector"
	"PriceSentinel/internal/model"
	"PriceSentinel/internal/recorder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeNotifier) Notify(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeNotifier) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func swingBars() []model.PriceBar {
	closes := []float64{100, 102, 101, 105, 103, 110, 108, 112, 115, 111}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = model.PriceBar{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return bars
}

func newTestScheduler(t *testing.T, fetcher collector.Fetcher, threshold *float64) (*Scheduler, *fakeNotifier) {
	t.Helper()
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	n := &fakeNotifier{}
	col := collector.NewCollector(fetcher, calculator.DefaultParams())
	req := collector.Request{Ticker: "AAPL", Range: collector.PeriodRange("1mo"), Threshold: threshold}
	return NewScheduler(context.Background(), col, n, rec, req), n
}

func ptr(v float64) *float64 { return &v }

func TestRunNow_AlertRecordAndExport(t *testing.T) {
	s, n := newTestScheduler(t, &collector.MockFetcher{Bars: swingBars()}, ptr(5))
	dir := t.TempDir()
	s.Export = Export{Dir: dir, File: "{ticker}_{range}.csv"}

	res, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Report.Alert())

	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "15.00%")

	last, err := s.Recorder.LastRun("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 10, last.Bars)
	assert.True(t, last.Alert())

	_, err = os.Stat(filepath.Join(dir, "AAPL_1mo.csv"))
	assert.NoError(t, err)
}

func TestRunNow_NoAlertBelowThreshold(t *testing.T) {
	s, n := newTestScheduler(t, &collector.MockFetcher{Bars: swingBars()}, ptr(50))
	_, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Empty(t, n.messages())
}

func TestWatchTask_NotifiesFailure(t *testing.T) {
	s, n := newTestScheduler(t, &collector.MockFetcher{Err: errors.New("upstream down")}, nil)
	s.watchTask()

	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "upstream down")
}

func TestRegister(t *testing.T) {
	s, _ := newTestScheduler(t, &collector.MockFetcher{Price: 100}, nil)
	assert.NoError(t, s.Register("0 0 18 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.Register("not a cron"))
}

func TestHandleCommand(t *testing.T) {
	s, n := newTestScheduler(t, &collector.MockFetcher{Bars: swingBars(), Unknown: map[string]bool{"ZZZ": true}}, ptr(5))
	ctx := context.Background()

	assert.Contains(t, s.HandleCommand(ctx, "/last"), "No runs recorded for AAPL")

	report := s.HandleCommand(ctx, "/report")
	assert.Contains(t, report, "AAPL report")
	assert.Contains(t, report, "exceeded")
	assert.Empty(t, n.messages(), "/report replies instead of alerting")

	assert.Contains(t, s.HandleCommand(ctx, "/last@PriceSentinelBot aapl"), "Last run")
	assert.Contains(t, s.HandleCommand(ctx, "/report zzz"), "unknown ticker")
	assert.Contains(t, s.HandleCommand(ctx, "/help"), "/report")
	assert.Contains(t, s.HandleCommand(ctx, "hello"), "commands")
}
