package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// DefaultDir is where exports land when no directory is configured.
const DefaultDir = "csv_files"

// CSVSink writes record sets as CSV files below Dir.
type CSVSink struct {
	Dir string
}

// NewCSVSink creates a CSV sink rooted at dir.
func NewCSVSink(dir string) *CSVSink {
	if dir == "" {
		dir = DefaultDir
	}
	return &CSVSink{Dir: dir}
}

func (s *CSVSink) path(destination string) string {
	if filepath.IsAbs(destination) {
		return destination
	}
	return filepath.Join(s.Dir, destination)
}

// Write creates or truncates the destination file.
func (s *CSVSink) Write(ctx context.Context, rs *RecordSet, destination string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath := s.path(destination)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(rs.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rs.Rows {
		if err := w.Write(row.Strings()); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	log.Printf("[INFO] exported %d rows to %s", len(rs.Rows), fullPath)
	return nil
}
