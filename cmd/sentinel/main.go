package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"PriceSentinel/internal/collector"
	"PriceSentinel/internal/config"
	"PriceSentinel/internal/exporter"
	"PriceSentinel/internal/metrics"
	"PriceSentinel/internal/notifier"
	"PriceSentinel/internal/recorder"
	"PriceSentinel/internal/scheduler"
)

type flags struct {
	config    string
	ticker    string
	period    string
	start     string
	end       string
	threshold string
	export    string
	provider  string
	watch     bool
}

func parseFlags() flags {
	var f flags
	defaultConfig := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	flag.StringVar(&f.config, "config", defaultConfig, "path to the YAML config file")
	flag.StringVar(&f.ticker, "ticker", "", "ticker symbol, e.g. AAPL")
	flag.StringVar(&f.period, "period", "", "look-back period: 1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd, max")
	flag.StringVar(&f.start, "start", "", "start date YYYY-MM-DD (use with -end instead of -period)")
	flag.StringVar(&f.end, "end", "", "end date YYYY-MM-DD")
	flag.StringVar(&f.threshold, "threshold", "", "fluctuation threshold in percent; empty skips the alert evaluation")
	flag.StringVar(&f.export, "export", "", "export file name (.csv, .xlsx, .db); may contain {ticker} and {range}")
	flag.StringVar(&f.provider, "provider", "", "data source: yahoo, financego, rest, csv, mock")
	flag.BoolVar(&f.watch, "watch", false, "run on the configured cron schedule until interrupted")
	flag.Parse()
	return f
}

// apply overrides config values with the flags that were set.
func (f flags) apply(cfg *config.Config) error {
	ds := &cfg.DataSource
	if f.ticker != "" {
		ds.Ticker = f.ticker
	}
	if f.provider != "" {
		ds.Provider = f.provider
	}
	if f.start != "" || f.end != "" {
		ds.Start, ds.End, ds.Period = f.start, f.end, ""
	}
	if f.period != "" {
		ds.Period, ds.Start, ds.End = f.period, "", ""
	}
	if f.threshold != "" {
		v, err := strconv.ParseFloat(f.threshold, 64)
		if err != nil {
			return fmt.Errorf("-threshold: %w", err)
		}
		cfg.Alert.Threshold = &v
	}
	if f.export != "" {
		cfg.Export.File = f.export
	}
	return nil
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	ds := cfg.DataSource
	switch ds.Provider {
	case "financego":
		return collector.NewFinanceGoFetcher()
	case "rest":
		return collector.NewRESTFetcher(ds.BaseURL, ds.APIKey, cfg.Proxy)
	case "csv":
		return collector.NewCSVFetcher(ds.CSVPath)
	case "mock":
		return &collector.MockFetcher{Price: 100}
	default:
		return collector.NewYahooFetcher(cfg.Proxy)
	}
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	f := parseFlags()

	cfg, err := config.Load(f.config)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := f.apply(cfg); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	cfg.DataSource.Ticker = strings.ToUpper(strings.TrimSpace(cfg.DataSource.Ticker))
	cfg.DataSource.Provider = strings.ToLower(cfg.DataSource.Provider)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init fetcher and collector
	fetcher := newFetcher(cfg)
	log.Printf("[INFO] data source: %s", fetcher.Name())
	col := collector.NewCollector(fetcher, cfg.IndicatorParams())

	m := metrics.New()
	col.Metrics = m

	// Init notifier
	var n notifier.Notifier = notifier.NewLogNotifier()
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		n = tn
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	req := collector.Request{
		Ticker:    cfg.DataSource.Ticker,
		Range:     cfg.Range(),
		Threshold: cfg.Alert.Threshold,
	}
	sched := scheduler.NewScheduler(ctx, col, n, rec, req)
	sched.Export = scheduler.Export{Dir: cfg.Export.Dir, File: cfg.Export.File}

	if !f.watch {
		res, err := sched.RunNow(ctx)
		if err != nil {
			rec.Close()
			log.Fatalf("[FATAL] %v", err)
		}
		fmt.Print(exporter.FormatSummary(res.Report))
		return
	}

	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		log.Fatalf("[FATAL] register cron task: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(cfg.Metrics.Addr, m)
		srv.Start()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			srv.Stop(shutdownCtx)
		}()
	}

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing watch task now")
		go func() {
			if _, err := sched.RunNow(ctx); err != nil {
				log.Printf("[ERROR] initial run: %v", err)
			}
		}()
	}

	log.Printf("[INFO] PriceSentinel watching %s (%s) on %q. Press Ctrl+C to stop.", req.Ticker, req.Range, cfg.Schedule.Cron)
	<-ctx.Done()
	log.Println("[INFO] shutdown signal received, stopping...")
}
