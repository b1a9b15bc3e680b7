// Package exporter shapes an enriched time series into row records and
// hands them to a storage sink.
//
// Shape is pure: it produces one row per bar with a Date column followed by
// every column present on the series, in insertion order. Sinks own the
// side effects:
//
//   - CSVSink writes a UTF-8 CSV file under a base directory
//   - XLSXSink writes an Excel workbook with one sheet per symbol
//   - SQLiteSink replaces a table in a SQLite database
//
// An empty series exports a header and zero rows.
package exporter
