package provider

import (
	"errors"
	"fmt"
)

// ErrorKind distinguishes transport failures from business failures at the
// fulfillment provider. Downstream code branches on the kind, never on
// message text.
type ErrorKind string

const (
	// KindUnreachable: the dispatch boundary itself could not be reached
	// (connection error, timeout, provider-side 5xx). Not a statement
	// about the order; the request may be retried later.
	KindUnreachable ErrorKind = "UNREACHABLE"

	// KindRejected: the provider received the request and refused it
	// (bad link, unsupported service, provider-side validation).
	KindRejected ErrorKind = "REJECTED"
)

// Error is the typed failure returned by every provider operation.
type Error struct {
	Kind   ErrorKind
	Op     string // operation name, e.g. "submit vote order"
	Reason string // provider-supplied reason, when there is one
	Err    error  // underlying transport error, when there is one
}

func (e *Error) Error() string {
	switch {
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Reason, e.Err)
	case e.Reason != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsUnreachable reports whether err is a transport-layer provider failure.
// Uses errors.As to handle wrapped errors.
func IsUnreachable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == KindUnreachable
	}
	return false
}

// IsRejected reports whether the provider refused the request.
// Uses errors.As to handle wrapped errors.
func IsRejected(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == KindRejected
	}
	return false
}

// NewUnreachable creates a transport-failure error for an operation.
func NewUnreachable(op string, err error) *Error {
	return &Error{Kind: KindUnreachable, Op: op, Err: err}
}

// NewRejected creates a business-rejection error for an operation.
func NewRejected(op, reason string) *Error {
	return &Error{Kind: KindRejected, Op: op, Reason: reason}
}
