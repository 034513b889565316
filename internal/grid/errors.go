package grid

import "errors"

var (
	// ErrSheetNotFound is returned when an operation targets a sheet that
	// does not exist (typically deleted earlier in the same transaction or
	// by another client).
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrInvalidOperation is returned for operations whose payload is
	// inconsistent (wrong number of values for the rectangle and so on).
	ErrInvalidOperation = errors.New("invalid operation")
)
