package exporter

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SinkFor picks a sink from the destination's file extension.
func SinkFor(destination, dir string) (Sink, error) {
	switch ext := strings.ToLower(filepath.Ext(destination)); ext {
	case ".csv":
		return NewCSVSink(dir), nil
	case ".xlsx":
		return NewXLSXSink(dir), nil
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteSink(dir), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q for %s", ext, destination)
	}
}

// Destination expands the {ticker} and {range} placeholders of a file name
// pattern, e.g. "{ticker}_{range}.csv" becomes "AAPL_1mo.csv".
func Destination(pattern, symbol, rangeSpec string) string {
	return strings.NewReplacer("{ticker}", symbol, "{range}", rangeSpec).Replace(pattern)
}
