package exporter

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXSink writes record sets as Excel workbooks below Dir.
type XLSXSink struct {
	Dir string
}

// NewXLSXSink creates a workbook sink rooted at dir.
func NewXLSXSink(dir string) *XLSXSink {
	if dir == "" {
		dir = DefaultDir
	}
	return &XLSXSink{Dir: dir}
}

// Write creates the workbook with a single sheet named after the symbol.
func (s *XLSXSink) Write(ctx context.Context, rs *RecordSet, destination string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath := destination
	if !filepath.IsAbs(fullPath) {
		fullPath = filepath.Join(s.Dir, destination)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(rs.Symbol)
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("delete default sheet: %w", err)
		}
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}
	header := make([]interface{}, len(rs.Header))
	for i, h := range rs.Header {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rs.Rows {
		cells := make([]interface{}, 0, len(row.Values)+1)
		cells = append(cells, row.Time.Format(DateLayout))
		for _, v := range row.Values {
			if math.IsNaN(v) {
				cells = append(cells, nil)
				continue
			}
			cells = append(cells, v)
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(axis, cells); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if err := f.SaveAs(fullPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	log.Printf("[INFO] exported %d rows to %s (sheet %s)", len(rs.Rows), fullPath, sheet)
	return nil
}

// SheetName turns a symbol into a valid worksheet name.
func SheetName(symbol string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, symbol)
	name = strings.Trim(name, "'")
	if name == "" {
		name = "Sheet1"
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}
