package engine

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes engine failures. The cooldown case is deliberately
// absent: a rate-limited poll is not an error, it is an "updated=false"
// result with a message.
type ErrorCode string

const (
	// ErrCodeValidation: the request was rejected before any side effect.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeInsufficientFunds: the balance does not cover the order
	// price. Rejected before order creation.
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"

	// ErrCodeProviderRejected: the provider refused the order after the
	// debit; compensation was triggered.
	ErrCodeProviderRejected ErrorCode = "PROVIDER_REJECTED"

	// ErrCodeNotCancellable: the order cannot be cancelled (no external
	// reference, comment order, or already completed).
	ErrCodeNotCancellable ErrorCode = "NOT_CANCELLABLE"

	// ErrCodeRefundFailed: the compensating refund itself failed. The
	// only condition that requires operator intervention.
	ErrCodeRefundFailed ErrorCode = "REFUND_FAILED"
)

// Error is the engine's structured error type.
type Error struct {
	Code    ErrorCode
	Message string

	// OrderID identifies the affected order, when one exists.
	OrderID int64

	// Err is the underlying cause, when there is one.
	Err error
}

func (e *Error) Error() string {
	if e.OrderID != 0 {
		return fmt.Sprintf("%s: %s (order=%d)", e.Code, e.Message, e.OrderID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// codeIs reports whether err is an engine Error with the given code.
// Uses errors.As to handle wrapped errors.
func codeIs(err error, code ErrorCode) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// IsValidation reports whether the request was rejected before any side
// effect.
func IsValidation(err error) bool {
	return codeIs(err, ErrCodeValidation)
}

// IsInsufficientFunds reports whether the balance was too short for the
// order price.
func IsInsufficientFunds(err error) bool {
	return codeIs(err, ErrCodeInsufficientFunds)
}

// IsProviderRejected reports whether the provider refused the order and a
// refund was issued.
func IsProviderRejected(err error) bool {
	return codeIs(err, ErrCodeProviderRejected)
}

// IsNotCancellable reports whether the order cannot be cancelled.
func IsNotCancellable(err error) bool {
	return codeIs(err, ErrCodeNotCancellable)
}

// IsRefundFailed reports whether a compensating refund failed. Callers
// should surface these prominently - they require manual review.
func IsRefundFailed(err error) bool {
	return codeIs(err, ErrCodeRefundFailed)
}

func newValidationError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}
