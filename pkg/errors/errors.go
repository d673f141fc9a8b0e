// Package errors provides structured error handling for the block layer.
//
// Every failure surfaced by block construction, slicing, and wire decoding is
// an *Error carrying an ErrorType, so callers can branch on the category
// (out of range, unknown encoding, truncated or corrupt input) without string
// matching.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents invalid arguments passed to a constructor
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeOutOfRange represents a position or region outside a block
	ErrorTypeOutOfRange ErrorType = "out_of_range"
	// ErrorTypeUnknownEncoding represents an encoding tag with no registered codec
	ErrorTypeUnknownEncoding ErrorType = "unknown_encoding"
	// ErrorTypeTruncatedInput represents a read past the end of the input
	ErrorTypeTruncatedInput ErrorType = "truncated_input"
	// ErrorTypeCorruptData represents a malformed byte stream
	ErrorTypeCorruptData ErrorType = "corrupt_data"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// OutOfRange reports a position or region request outside [0, positionCount).
func OutOfRange(format string, args ...interface{}) *Error {
	return &Error{
		Type:    ErrorTypeOutOfRange,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Corrupt reports a malformed byte stream.
func Corrupt(format string, args ...interface{}) *Error {
	return &Error{
		Type:    ErrorTypeCorruptData,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// IsOutOfRange reports whether err is an out_of_range error.
func IsOutOfRange(err error) bool { return IsType(err, ErrorTypeOutOfRange) }

// IsUnknownEncoding reports whether err is an unknown_encoding error.
func IsUnknownEncoding(err error) bool { return IsType(err, ErrorTypeUnknownEncoding) }

// IsTruncated reports whether err is a truncated_input error.
func IsTruncated(err error) bool { return IsType(err, ErrorTypeTruncatedInput) }

// IsCorrupt reports whether err is a corrupt_data error.
func IsCorrupt(err error) bool { return IsType(err, ErrorTypeCorruptData) }

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
