package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"PriceSentinel/internal/model"
	"PriceSentinel/internal/recorder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNotifier(srv *httptest.Server) *TelegramNotifier {
	n := NewTelegramNotifier("TOKEN", "42", "")
	n.APIBase = srv.URL
	n.Backoff = time.Millisecond
	return n
}

func TestTelegramNotifier_Send(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	require.NoError(t, testNotifier(srv).Send(context.Background(), "<b>hi</b>"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "HTML", got["parse_mode"])
	assert.Equal(t, "<b>hi</b>", got["text"])
}

func TestTelegramNotifier_NotifyRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	require.NoError(t, testNotifier(srv).Notify(context.Background(), "x"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestTelegramNotifier_RetriesExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := testNotifier(srv).SendWithRetry(context.Background(), "x", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 retries exhausted")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestTelegramNotifier_StartPolling(t *testing.T) {
	var (
		mu      sync.Mutex
		replies []string
		polls   int32
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/getUpdates":
			if atomic.AddInt32(&polls, 1) == 1 {
				fmt.Fprint(w, `{"ok":true,"result":[
					{"update_id":7,"message":{"text":" /help ","chat":{"id":42}}},
					{"update_id":8,"message":{"text":"/help","chat":{"id":99}}}]}`)
				return
			}
			assert.Equal(t, "9", r.URL.Query().Get("offset"))
			fmt.Fprint(w, `{"ok":true,"result":[]}`)
		case "/botTOKEN/sendMessage":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			replies = append(replies, body["text"])
			mu.Unlock()
			cancel()
			fmt.Fprint(w, `{"ok":true}`)
		}
	}))
	defer srv.Close()

	done := make(chan struct{})
	go func() {
		testNotifier(srv).StartPolling(ctx, func(_ context.Context, cmd string) string {
			return "got " + cmd
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"got /help"}, replies)
}

func alertReport() *model.FluctuationReport {
	threshold, exceeded := 5.0, true
	return &model.FluctuationReport{
		Symbol: "AAPL", Count: 10, AverageClose: 106.7,
		MinClose: 100, MaxClose: 115, PercentSwing: 15,
		Threshold: &threshold, ThresholdExceeded: &exceeded,
	}
}

func TestFormatAlert(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts, err := model.NewTimeSeries("AAPL", []model.PriceBar{{Time: start, Close: 111}})
	require.NoError(t, err)
	ts, err = ts.WithColumn(model.ColRSI, []float64{math.NaN()})
	require.NoError(t, err)

	msg := FormatAlert(alertReport(), ts)
	assert.Contains(t, msg, "<b>15.00%</b> over 10 bars (threshold 5%)")
	assert.Contains(t, msg, "Min close: 100.00 | Max close: 115.00")
	assert.Contains(t, msg, "Close: 111.00")
	assert.Contains(t, msg, "RSI: n/a")
	assert.Contains(t, msg, "2024-01-01")
}

func TestFormatReport(t *testing.T) {
	r := alertReport()
	assert.Contains(t, FormatReport(r, nil), "exceeded")

	r.Threshold, r.ThresholdExceeded = nil, nil
	out := FormatReport(r, nil)
	assert.Contains(t, out, "Threshold: not set")
	assert.NotContains(t, out, "Latest")
}

func TestFormatLastRun(t *testing.T) {
	exceeded := true
	out := FormatLastRun(&recorder.RunRecord{
		Symbol: "AAPL", Range: "1mo", Source: "yahoo", Bars: 21,
		AverageClose: 190.5, PercentSwing: 7.25, Exceeded: &exceeded,
		LatestRSI: 55, LatestMACD: math.NaN(),
		RecordedAt: time.Date(2024, 2, 1, 18, 0, 0, 0, time.UTC),
	})
	assert.Contains(t, out, "Range: 1mo (yahoo, 21 bars)")
	assert.Contains(t, out, "Swing: 7.25%")
	assert.Contains(t, out, "Alert: yes")
	assert.Contains(t, out, "MACD: n/a")
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "a & b bold", stripTags("a &amp; b <b>bold</b>"))
	assert.NoError(t, NewLogNotifier().Notify(context.Background(), FormatHelp()))
}
