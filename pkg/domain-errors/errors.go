// Package domainerrors carries the error taxonomy shared by services and adapters.
//
// Services return *Error values tagged with a Code; transports translate the
// code into a status without inspecting messages. Stores never build these
// directly and return pkg/platform/sentinel errors instead.
package domainerrors

import (
	"errors"
)

type Code string

const (
	// CodeBadRequest marks malformed requests (undecodable body, unknown fields).
	CodeBadRequest Code = "bad_request"
	// CodeInvalidInput marks unparseable identifiers and query parameters.
	CodeInvalidInput Code = "invalid_input"
	// CodeValidation marks well-formed input that breaks a field rule.
	CodeValidation Code = "validation_error"
	// CodeInvariantViolation is raised by model constructors. Services convert
	// it to CodeValidation before it leaves the domain.
	CodeInvariantViolation Code = "invariant_violation"
	CodeNotFound           Code = "not_found"
	CodeForbidden          Code = "forbidden"
	CodeUnauthorized       Code = "unauthorized"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"
	CodeRateLimited        Code = "rate_limited"
	CodeInternal           Code = "internal_error"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
// The cause stays reachable through errors.Is/As.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// chain carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost coded error in the chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code
}

// Is is an alias of HasCode kept for call sites that read better with it.
func Is(err error, code Code) bool { return HasCode(err, code) }

// MessageOf returns the outermost message, without the wrapped cause.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
