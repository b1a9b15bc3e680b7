package model

import "errors"

var (
	// ErrColumnNotFound is returned when a series lookup names an absent column.
	ErrColumnNotFound = errors.New("column not found")
	// ErrLengthMismatch is returned when a column is not aligned with the index.
	ErrLengthMismatch = errors.New("column length mismatch")
	// ErrNonMonotonic is returned when timestamps are not strictly increasing.
	ErrNonMonotonic = errors.New("timestamps not strictly increasing")

	// ErrMissingColumn is returned by indicators whose input column is absent.
	ErrMissingColumn = errors.New("missing input column")
	// ErrInvalidWindow is returned for window sizes below one.
	ErrInvalidWindow = errors.New("window must be positive")

	// ErrNoCloseData is returned by the analyzer when the series has no close column.
	ErrNoCloseData = errors.New("no close data")

	// ErrDataUnavailable is returned by data sources that found no bars.
	ErrDataUnavailable = errors.New("data unavailable")
)
