// Package domainerrors carries the error taxonomy shared by every service.
//
// Services return *Error values built with New or Wrap. The Code classifies the
// failure (validation, authorization, state precondition, dependency, internal)
// and drives the HTTP mapping in pkg/platform/httputil. Package-level *Error
// values act as distinct reasons and compare with errors.Is by identity.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// Input validation
	CodeInvalidInput Code = "invalid_input"
	CodeValidation   Code = "validation_error"
	CodeBadRequest   Code = "bad_request"

	// Authorization
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"

	// State preconditions
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvalidState       Code = "invalid_state"
	CodeInsufficientFunds  Code = "insufficient_funds"
	CodePaused             Code = "paused"
	CodeInvariantViolation Code = "invariant_violation"

	// Dependencies and infrastructure
	CodeDependency Code = "dependency_failed"
	CodeTimeout    Code = "timeout"
	CodeInternal   Code = "internal_error"
)

// Error is a classified domain error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an error with the given code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap classifies an underlying error. A nil err still yields an error so
// callers never lose the failure by accident.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the outermost code found in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any error in the chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}
