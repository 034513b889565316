package ir

import (
	"encoding/json"
	"fmt"
)

// RunErrorKind categorizes a value-level evaluation error.
type RunErrorKind string

const (
	// ErrBadCellReference: a reference names a sheet that does not exist.
	ErrBadCellReference RunErrorKind = "BadCellReference"

	// ErrCircularReference: a formula reads its own cell, directly or
	// through a chain of dependents within one recompute cascade.
	ErrCircularReference RunErrorKind = "CircularReference"

	// ErrArrayTooBig: a range exceeds the configured cell range limit.
	ErrArrayTooBig RunErrorKind = "ArrayTooBig"

	// ErrUnimplemented: a whole-row or whole-column range was used.
	ErrUnimplemented RunErrorKind = "Unimplemented"

	// ErrCodeCellSheetError: a code cell asked for a sheet that no longer exists.
	ErrCodeCellSheetError RunErrorKind = "CodeCellSheetError"

	// ErrArrayAxisMismatch: arrays in one broadcast have incompatible shapes.
	ErrArrayAxisMismatch RunErrorKind = "ArrayAxisMismatch"

	ErrDivideByZero RunErrorKind = "DivideByZero"
	ErrValue        RunErrorKind = "Value"
	ErrName         RunErrorKind = "Name"
	ErrSyntax       RunErrorKind = "Syntax"

	// ErrCode: an interpreter reported a failure for a code cell.
	ErrCode RunErrorKind = "Code"
)

// RunError is an error produced while computing a single cell. It is both a
// Go error and a CellValue, so it can be stored at the cell that produced it.
type RunError struct {
	Kind RunErrorKind `json:"kind"`
	Msg  string       `json:"msg,omitempty"`
}

// NewRunError creates a RunError with a formatted message.
func NewRunError(kind RunErrorKind, format string, args ...any) *RunError {
	return &RunError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func (*RunError) cellValue() {}

// TypeName implements CellValue.
func (*RunError) TypeName() string { return TypeError }

// String implements CellValue.
func (e *RunError) String() string {
	return e.Error()
}

// Error implements error.
func (e *RunError) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// MarshalJSON encodes the error in the tagged CellValue form.
func (e *RunError) MarshalJSON() ([]byte, error) {
	return json.Marshal(cellValueJSON{Type: TypeError, Kind: e.Kind, Msg: e.Msg})
}
