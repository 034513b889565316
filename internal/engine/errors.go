package engine

import (
	"errors"
	"fmt"
)

// CoreError represents a failure detected by the transaction controller.
//
// Core errors are plumbing failures returned to the boundary caller:
//   - Transaction not found: a reply or query named an id that is not parked
//   - Code cell sheet error: a code cell asked for a sheet that does not exist
//   - Duplicate transaction: a parked id was parked again
//   - Suspend not allowed: a renderer round trip was requested off the user path
//   - Cascade exceeded: dependent recomputation ran past its step limit
//
// Errors inside a single cell never become CoreErrors; they are stored at the
// cell as *ir.RunError values.
type CoreError struct {
	// Code identifies the error category.
	Code CoreErrorCode

	// Message is a human-readable description.
	Message string

	// TransactionID identifies the affected transaction, when known.
	TransactionID string

	// Details contains additional context.
	Details map[string]string
}

// CoreErrorCode categorizes controller errors.
type CoreErrorCode string

const (
	// ErrCodeTransactionNotFound indicates the id is unknown, unparsable or
	// not waiting for this kind of reply.
	ErrCodeTransactionNotFound CoreErrorCode = "TRANSACTION_NOT_FOUND"

	// ErrCodeCodeCellSheetError indicates a get_cells call named a missing sheet.
	ErrCodeCodeCellSheetError CoreErrorCode = "CODE_CELL_SHEET_ERROR"

	// ErrCodeDuplicateTransaction indicates the registry already holds the id.
	ErrCodeDuplicateTransaction CoreErrorCode = "DUPLICATE_TRANSACTION"

	// ErrCodeSuspendNotAllowed indicates a suspension the origin forbids.
	ErrCodeSuspendNotAllowed CoreErrorCode = "SUSPEND_NOT_ALLOWED"

	// ErrCodeCascadeExceeded indicates a recompute cascade hit max steps.
	ErrCodeCascadeExceeded CoreErrorCode = "CASCADE_EXCEEDED"
)

// Error implements the error interface.
func (e *CoreError) Error() string {
	if e.TransactionID != "" {
		return fmt.Sprintf("%s: %s (transaction=%s)", e.Code, e.Message, e.TransactionID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func isCode(err error, code CoreErrorCode) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// IsTransactionNotFound returns true if err is a TRANSACTION_NOT_FOUND error.
// Uses errors.As to handle wrapped errors.
func IsTransactionNotFound(err error) bool {
	return isCode(err, ErrCodeTransactionNotFound)
}

// IsCodeCellSheetError returns true if err is a CODE_CELL_SHEET_ERROR error.
func IsCodeCellSheetError(err error) bool {
	return isCode(err, ErrCodeCodeCellSheetError)
}

// IsDuplicateTransaction returns true if err is a DUPLICATE_TRANSACTION error.
func IsDuplicateTransaction(err error) bool {
	return isCode(err, ErrCodeDuplicateTransaction)
}

// IsSuspendNotAllowed returns true if err is a SUSPEND_NOT_ALLOWED error.
func IsSuspendNotAllowed(err error) bool {
	return isCode(err, ErrCodeSuspendNotAllowed)
}

// IsCascadeExceeded returns true if err is a CASCADE_EXCEEDED error or a
// StepsExceededError.
func IsCascadeExceeded(err error) bool {
	if isCode(err, ErrCodeCascadeExceeded) {
		return true
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// NewTransactionNotFound creates a CoreError for an unknown or mismatched id.
func NewTransactionNotFound(id, reason string) *CoreError {
	return &CoreError{
		Code:          ErrCodeTransactionNotFound,
		Message:       reason,
		TransactionID: id,
	}
}

// NewDuplicateTransaction creates a CoreError for a second insert of id.
func NewDuplicateTransaction(id string) *CoreError {
	return &CoreError{
		Code:          ErrCodeDuplicateTransaction,
		Message:       "transaction is already parked",
		TransactionID: id,
	}
}

// NewCodeCellSheetError creates a CoreError for a get_cells call that named
// a missing sheet.
func NewCodeCellSheetError(id, sheetName string) *CoreError {
	return &CoreError{
		Code:          ErrCodeCodeCellSheetError,
		Message:       fmt.Sprintf("sheet %q not found", sheetName),
		TransactionID: id,
		Details:       map[string]string{"sheet_name": sheetName},
	}
}

// NewSuspendNotAllowed creates a CoreError for a forbidden suspension.
func NewSuspendNotAllowed(id string, origin Origin, kind AsyncKind) *CoreError {
	return &CoreError{
		Code:          ErrCodeSuspendNotAllowed,
		Message:       fmt.Sprintf("%s transactions may not wait for %s", origin, kind),
		TransactionID: id,
		Details:       map[string]string{"origin": origin.String(), "kind": kind.String()},
	}
}

// NewCascadeExceeded creates a CoreError for a cascade over its step limit.
func NewCascadeExceeded(cascade string, steps, maxSteps int) *CoreError {
	return &CoreError{
		Code:    ErrCodeCascadeExceeded,
		Message: fmt.Sprintf("recompute cascade exceeded max steps (%d > %d)", steps, maxSteps),
		Details: map[string]string{
			"cascade":   cascade,
			"steps":     fmt.Sprintf("%d", steps),
			"max_steps": fmt.Sprintf("%d", maxSteps),
		},
	}
}
