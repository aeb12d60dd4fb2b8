package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/factlog/internal/ir"
)

// UsageError reports a call the store refuses to perform.
type UsageError struct {
	// Code identifies the error category.
	Code UsageErrorCode

	// Message is a human-readable description.
	Message string
}

// UsageErrorCode categorizes usage errors.
type UsageErrorCode string

const (
	// ErrCodeRetractInRule indicates Retract was called from inside a rule
	// callback. Rules may only add facts.
	ErrCodeRetractInRule UsageErrorCode = "RETRACT_IN_RULE"

	// ErrCodeStoreClosed indicates the store was already closed.
	ErrCodeStoreClosed UsageErrorCode = "STORE_CLOSED"
)

// Error implements the error interface.
func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

var (
	errRetractInRule = &UsageError{
		Code:    ErrCodeRetractInRule,
		Message: "retract is not allowed inside a rule callback",
	}
	errStoreClosed = &UsageError{
		Code:    ErrCodeStoreClosed,
		Message: "store is closed",
	}
)

// IsRetractInRule returns true if the error reports a retract from inside a
// rule callback. Uses errors.As to handle wrapped errors.
func IsRetractInRule(err error) bool {
	var ue *UsageError
	if errors.As(err, &ue) {
		return ue.Code == ErrCodeRetractInRule
	}
	return false
}

// IsStoreClosed returns true if the error reports a closed store.
func IsStoreClosed(err error) bool {
	var ue *UsageError
	if errors.As(err, &ue) {
		return ue.Code == ErrCodeStoreClosed
	}
	return false
}

// RuleError describes a rule callback that failed for one binding context.
// The failing invocation contributes no facts; the pass continues.
type RuleError struct {
	Rule     string
	Bindings ir.Bindings
	Err      error
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %s failed for %s: %v", e.Rule, e.Bindings, e.Err)
}

// Unwrap returns the callback's error.
func (e *RuleError) Unwrap() error {
	return e.Err
}

// IsRuleError returns true if the error is a RuleError.
// Uses errors.As to handle wrapped errors.
func IsRuleError(err error) bool {
	var re *RuleError
	return errors.As(err, &re)
}

// StepsExceededError is reported when a recompute runs more passes than the
// WithMaxPasses quota allows. The recompute is abandoned; Derived keeps what
// the completed passes produced and subscribers are not notified.
type StepsExceededError struct {
	Epoch  int64 // The recompute that exceeded the quota
	Passes int   // Number of passes taken
	Limit  int   // Maximum allowed passes
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("recompute %d exceeded max passes quota: %d passes > %d limit",
		e.Epoch, e.Passes, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
