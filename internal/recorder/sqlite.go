package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the CLI read history while watch mode writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id            TEXT PRIMARY KEY,
			timestamp     INTEGER NOT NULL,
			symbol        TEXT NOT NULL,
			range_spec    TEXT,
			source        TEXT,
			bars          INTEGER,
			average_close REAL,
			min_close     REAL,
			max_close     REAL,
			percent_swing REAL,
			threshold     REAL,
			exceeded      INTEGER,
			latest_close  REAL,
			latest_rsi    REAL,
			latest_macd   REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol_ts ON runs(symbol, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// nullable maps NaN to NULL.
func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// RecordRun stores rec, assigning an ID and timestamp when missing.
func (r *SQLiteRecorder) RecordRun(rec *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}

	var threshold sql.NullFloat64
	if rec.Threshold != nil {
		threshold = sql.NullFloat64{Float64: *rec.Threshold, Valid: true}
	}
	var exceeded sql.NullBool
	if rec.Exceeded != nil {
		exceeded = sql.NullBool{Bool: *rec.Exceeded, Valid: true}
	}

	_, err := r.db.Exec(`INSERT INTO runs
		(id, timestamp, symbol, range_spec, source, bars,
		 average_close, min_close, max_close, percent_swing,
		 threshold, exceeded, latest_close, latest_rsi, latest_macd)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.RecordedAt.UnixMilli(), strings.ToUpper(rec.Symbol), rec.Range, rec.Source, rec.Bars,
		nullable(rec.AverageClose), nullable(rec.MinClose), nullable(rec.MaxClose), nullable(rec.PercentSwing),
		threshold, exceeded,
		nullable(rec.LatestClose), nullable(rec.LatestRSI), nullable(rec.LatestMACD),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// LastRun returns the most recent run recorded for symbol.
func (r *SQLiteRecorder) LastRun(symbol string) (*RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		rec                           RunRecord
		ts                            int64
		avg, minC, maxC, swing        sql.NullFloat64
		threshold                     sql.NullFloat64
		exceeded                      sql.NullBool
		latestClose, latestRSI, lMACD sql.NullFloat64
	)
	err := r.db.QueryRow(`SELECT id, timestamp, symbol, range_spec, source, bars,
		average_close, min_close, max_close, percent_swing,
		threshold, exceeded, latest_close, latest_rsi, latest_macd
		FROM runs WHERE symbol = ? ORDER BY timestamp DESC, rowid DESC LIMIT 1`,
		strings.ToUpper(symbol),
	).Scan(&rec.ID, &ts, &rec.Symbol, &rec.Range, &rec.Source, &rec.Bars,
		&avg, &minC, &maxC, &swing,
		&threshold, &exceeded, &latestClose, &latestRSI, &lMACD)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoRuns)
	}
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}

	rec.RecordedAt = time.UnixMilli(ts)
	rec.AverageClose = fromNullable(avg)
	rec.MinClose = fromNullable(minC)
	rec.MaxClose = fromNullable(maxC)
	rec.PercentSwing = fromNullable(swing)
	rec.LatestClose = fromNullable(latestClose)
	rec.LatestRSI = fromNullable(latestRSI)
	rec.LatestMACD = fromNullable(lMACD)
	if threshold.Valid {
		v := threshold.Float64
		rec.Threshold = &v
	}
	if exceeded.Valid {
		v := exceeded.Bool
		rec.Exceeded = &v
	}
	return &rec, nil
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
