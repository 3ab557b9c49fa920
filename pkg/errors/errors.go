package errors

import (
	"context"
	"errors"
	"fmt"
)

// Code classifies an error crossing the gateway boundary
type Code string

const (
	CodeUnknown      Code = "unknown"
	CodeCancelled    Code = "cancelled"
	CodeNetwork      Code = "network"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeInvalidInput Code = "invalid_input"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrNetwork      = errors.New("network unavailable")
	ErrCancelled    = errors.New("cancelled")
)

// Error represents a custom error type
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets a coded error match the sentinel of its code
func (e *Error) Is(target error) bool {
	switch e.Code {
	case CodeNotFound:
		return target == ErrNotFound
	case CodeInvalidInput:
		return target == ErrInvalidInput
	case CodeUnauthorized:
		return target == ErrUnauthorized
	case CodeConflict:
		return target == ErrConflict
	case CodeNetwork:
		return target == ErrNetwork
	case CodeCancelled:
		return target == ErrCancelled
	}
	return false
}

// New creates a new error with a message
func New(message string) error {
	return &Error{
		Code:    CodeUnknown,
		Message: message,
	}
}

// NewWithCode creates a coded error without a cause
func NewWithCode(code Code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional message
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    GetCode(err),
		Message: message,
		Err:     err,
	}
}

// WrapWithCode wraps an error with a code and message
func WrapWithCode(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// GetCode returns the outermost error code, CodeUnknown when there is none.
// Raw context errors are classified too, since drivers often return them bare.
func GetCode(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	switch {
	case errors.Is(err, context.Canceled):
		return CodeCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return CodeNetwork
	}
	return CodeUnknown
}

// GetMessage returns the error message
func GetMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsCancelled returns true if the error is a cancellation
func IsCancelled(err error) bool {
	return GetCode(err) == CodeCancelled || errors.Is(err, context.Canceled)
}

// IsNetwork returns true if the error is a connectivity failure
func IsNetwork(err error) bool {
	return GetCode(err) == CodeNetwork
}

// IsNotFound returns true if the error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the error is a unique constraint violation
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsUnauthorized returns true if the error is an unauthorized error
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsInvalidInput returns true if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
