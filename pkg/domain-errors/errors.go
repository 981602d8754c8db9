// Package dErrors provides code-tagged domain errors. Services return these so
// transports and callers can branch on the code without string matching.
//
// For infrastructure facts (not found, conflict) stores return the sentinels
// in pkg/platform/sentinel and services translate them here.
package dErrors

import (
	"errors"
	"fmt"
)

// Code identifies the class of a domain error.
type Code string

const (
	// Request-shape and lookup failures.
	CodeInvalidInput Code = "invalid_input"
	CodeBadRequest   Code = "bad_request"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal"

	// Delivery governance failures. These map one-to-one onto the terminal
	// outcomes the orchestrator can report.
	CodePolicyDenied        Code = "policy_denied"
	CodeResolutionFailed    Code = "resolution_failed"
	CodeTimingSuppressed    Code = "timing_suppressed"
	CodeEscalationLimit     Code = "escalation_limit_reached"
	CodeTransmissionFailure Code = "transmission_failure"
	CodeInvalidDestination  Code = "invalid_destination"
	CodeUnmatchedResponse   Code = "unmatched_response"
	CodeIntegrityViolation  Code = "integrity_violation"
)

// Error is a domain error carrying a machine-readable code.
type Error struct {
	Code    Code
	Message string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates err with a domain code while preserving the original chain.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, wrapped: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost domain error, or CodeInternal when
// err carries no code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
