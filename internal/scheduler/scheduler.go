package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"

	"PriceSentinel/internal/collector"
	"PriceSentinel/internal/exporter"
	"PriceSentinel/internal/notifier"
	"PriceSentinel/internal/recorder"

	"github.com/robfig/cron/v3"
)

// Export selects where each run is written. An empty File disables export.
type Export struct {
	Dir  string
	File string // may contain {ticker} and {range}
}

// Scheduler runs the analysis on a cron schedule and answers bot commands.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Notifier  notifier.Notifier
	Recorder  recorder.Recorder
	Request   collector.Request
	Export    Export
	Ctx       context.Context
}

// NewScheduler creates a new Scheduler watching req.
func NewScheduler(ctx context.Context, col *collector.Collector, n notifier.Notifier, rec recorder.Recorder, req collector.Request) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Notifier:  n,
		Recorder:  rec,
		Request:   req,
		Ctx:       ctx,
	}
}

// Register adds the watch task on spec, a six-field cron expression.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.watchTask); err != nil {
		return fmt.Errorf("register watch task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running task.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes one run of the watched request immediately.
func (s *Scheduler) RunNow(ctx context.Context) (*collector.Result, error) {
	return s.run(ctx, s.Request, true)
}

func (s *Scheduler) watchTask() {
	log.Printf("[INFO] running watch task for %s", s.Request.Ticker)
	if _, err := s.run(s.Ctx, s.Request, true); err != nil {
		log.Printf("[ERROR] watch %s: %v", s.Request.Ticker, err)
		s.trySend(fmt.Sprintf("❌ %s analysis failed: %s", html.EscapeString(s.Request.Ticker), html.EscapeString(err.Error())))
	}
}

// run analyzes req, records and exports the result and, when alert is set,
// notifies on a threshold breach. Recording and export failures are logged
// without failing the run.
func (s *Scheduler) run(ctx context.Context, req collector.Request, alert bool) (*collector.Result, error) {
	res, err := s.Collector.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.Recorder.RecordRun(recorder.FromResult(res)); err != nil {
		log.Printf("[ERROR] record run: %v", err)
	}

	if s.Export.File != "" {
		if err := s.export(ctx, res); err != nil {
			log.Printf("[ERROR] export %s: %v", res.Report.Symbol, err)
		}
	}

	if alert && res.Report.Alert() {
		log.Printf("[INFO] %s swing %.2f%% exceeded threshold", res.Report.Symbol, res.Report.PercentSwing)
		s.trySend(notifier.FormatAlert(res.Report, res.Series))
	}
	return res, nil
}

func (s *Scheduler) export(ctx context.Context, res *collector.Result) error {
	dest := exporter.Destination(s.Export.File, res.Report.Symbol, res.Request.Range.String())
	sink, err := exporter.SinkFor(dest, s.Export.Dir)
	if err != nil {
		return err
	}
	if err := exporter.Export(ctx, res.Series, sink, dest); err != nil {
		return err
	}
	log.Printf("[INFO] exported %s to %s", res.Report.Symbol, dest)
	return nil
}

// HandleCommand processes a bot command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	ticker := s.Request.Ticker
	if len(fields) > 1 {
		ticker = strings.ToUpper(fields[1])
	}

	// Commands may carry a bot suffix, e.g. /report@PriceSentinelBot.
	name, _, _ := strings.Cut(fields[0], "@")
	switch name {
	case "/report":
		req := s.Request
		req.Ticker = ticker
		res, err := s.run(ctx, req, false)
		if err != nil {
			log.Printf("[ERROR] /report %s: %v", ticker, err)
			return fmt.Sprintf("❌ %s: %s", html.EscapeString(ticker), html.EscapeString(err.Error()))
		}
		return notifier.FormatReport(res.Report, res.Series)
	case "/last":
		rec, err := s.Recorder.LastRun(ticker)
		if errors.Is(err, recorder.ErrNoRuns) {
			return fmt.Sprintf("No runs recorded for %s yet.", html.EscapeString(ticker))
		}
		if err != nil {
			log.Printf("[ERROR] /last %s: %v", ticker, err)
			return "❌ history unavailable"
		}
		return notifier.FormatLastRun(rec)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.Notify(s.Ctx, text); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
