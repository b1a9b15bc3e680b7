package exporter

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteSink writes record sets into a SQLite database below Dir. Each
// export replaces the table named after the symbol.
type SQLiteSink struct {
	Dir string
}

// NewSQLiteSink creates a SQLite sink rooted at dir.
func NewSQLiteSink(dir string) *SQLiteSink {
	if dir == "" {
		dir = DefaultDir
	}
	return &SQLiteSink{Dir: dir}
}

// TableName derives the table used for a symbol, e.g. "^GSPC" -> "prices_GSPC".
func TableName(symbol string) string {
	var b strings.Builder
	b.WriteString("prices_")
	for _, r := range symbol {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '.' || r == '-':
			b.WriteRune('_')
		}
	}
	return b.String()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Write replaces the symbol's table with the record set in one transaction.
func (s *SQLiteSink) Write(ctx context.Context, rs *RecordSet, destination string) error {
	fullPath := destination
	if !filepath.IsAbs(fullPath) {
		fullPath = filepath.Join(s.Dir, destination)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	db, err := sql.Open("sqlite", fullPath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	table := quoteIdent(TableName(rs.Symbol))
	cols := make([]string, len(rs.Header))
	placeholders := make([]string, len(rs.Header))
	for i, h := range rs.Header {
		typ := "REAL"
		if i == 0 {
			typ = "TEXT NOT NULL"
		}
		cols[i] = quoteIdent(h) + " " + typ
		placeholders[i] = "?"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(cols, ", "))); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, strings.Join(placeholders, ",")))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rs.Rows {
		args := make([]any, 0, len(row.Values)+1)
		args = append(args, row.Time.Format(DateLayout))
		for _, v := range row.Values {
			if math.IsNaN(v) {
				args = append(args, nil)
				continue
			}
			args = append(args, v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	log.Printf("[INFO] exported %d rows to %s table %s", len(rs.Rows), fullPath, table)
	return nil
}
