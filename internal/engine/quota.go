package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer counts the follow-up transactions of one recompute cascade
// and enforces a maximum.
//
// Cycle detection catches cells that read their own output. The quota
// bounds cascades whose reads keep changing from one follow-up to the next,
// so every cascade terminates.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{
		maxSteps: maxSteps,
		current:  0,
	}
}

// Check increments the step counter and validates against the limit.
//
// Returns StepsExceededError if the quota is exceeded.
func (q *QuotaEnforcer) Check(cascade string) error {
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{
			Cascade: cascade,
			Steps:   q.current,
			Limit:   q.maxSteps,
		}
	}
	return nil
}

// Reset resets the step counter to 0.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the current step count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the maximum steps limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is returned when a cascade exceeds the max steps quota.
// The cascade stops; cells it did not reach keep their previous output.
type StepsExceededError struct {
	Cascade string
	Steps   int
	Limit   int
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("cascade %s exceeded max steps quota: %d steps > %d limit",
		e.Cascade, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
