// Package errors provides structured error types for docpatch.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies specific error conditions
type ErrorCode string

const (
	ErrCodeValidation       ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeConflict         ErrorCode = "CONFLICT"
	ErrCodeRetriesExhausted ErrorCode = "RETRIES_EXHAUSTED"
	ErrCodeStore            ErrorCode = "STORE_ERROR"
	ErrCodeParse            ErrorCode = "PARSE_ERROR"
)

// Error is the base error type for docpatch
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Details map[string]interface{}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Wrap creates a new error wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
		Details: make(map[string]interface{}),
	}
}

// WithDetail adds a single detail to an error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	e.Details[key] = value
	return e
}

// ValidationError creates a configuration error. These are raised before any
// store call is made and are never retried.
func ValidationError(format string, args ...interface{}) *Error {
	return New(ErrCodeValidation, fmt.Sprintf(format, args...))
}

// FilterNotFound reports that no object in a document satisfied the filter.
func FilterNotFound(name, value string) *Error {
	return New(ErrCodeNotFound, fmt.Sprintf("Object with filter: %s and value: %s does not exist.", name, value)).
		WithDetail("filter_name", name).
		WithDetail("filter_value", value)
}

// DocumentNotFound reports that the addressed document does not exist.
func DocumentNotFound(partitionKey, id string) *Error {
	return New(ErrCodeNotFound, fmt.Sprintf("document with partition key %s and id %s does not exist", partitionKey, id)).
		WithDetail("partition_key", partitionKey).
		WithDetail("id", id)
}

// CodeOf returns the code of the first *Error in err's chain, or "" when
// there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}
