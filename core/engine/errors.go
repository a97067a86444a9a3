package engine

import (
	"errors"
	"fmt"
)

// Error codes returned instead of a result.
const (
	CodeNoWorkableDays   = "no_workable_days"
	CodeDomainTimeout    = "domain_generation_timeout"
	CodeInvalidInput     = "invalid_input"
	CodeUnknownAlgorithm = "unknown_algorithm"
	CodeInternal         = "internal_error"
)

// Error is the typed outcome of a run that could not reach the solvers.
type Error struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e != nil && t.Code == e.Code
}

// Predefined errors, compared with errors.Is.
var (
	ErrNoWorkableDays   = &Error{Code: CodeNoWorkableDays, Message: "planning window has no workable days"}
	ErrDomainTimeout    = &Error{Code: CodeDomainTimeout, Message: "domain generation exceeded its time budget"}
	ErrInvalidInput     = &Error{Code: CodeInvalidInput, Message: "invalid input"}
	ErrUnknownAlgorithm = &Error{Code: CodeUnknownAlgorithm, Message: "unknown algorithm"}
	ErrInternal         = &Error{Code: CodeInternal, Message: "internal error"}
)

// Wrap attaches err to a copy of base.
func Wrap(base *Error, err error) *Error {
	return &Error{Code: base.Code, Message: base.Message, Err: err}
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(ErrInternal, err)
}

// Code returns the error code of err, or an empty string for nil.
func Code(err error) string {
	if e := FromError(err); e != nil {
		return e.Code
	}
	return ""
}
