// Package errors provides standardized error handling for containaudit.
// It defines sentinel errors and utilities for error wrapping with context.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Sentinel errors for common failure scenarios
var (
	// ErrNotInContainer indicates the container sentinel marker is missing
	ErrNotInContainer = stderrors.New("not running inside a container")

	// ErrTimeoutExceeded indicates a command or operation exceeded its timeout
	ErrTimeoutExceeded = stderrors.New("timeout exceeded")

	// ErrPermissionDenied indicates insufficient permissions
	ErrPermissionDenied = stderrors.New("permission denied")

	// ErrCommandNotFound indicates a required command is not available
	ErrCommandNotFound = stderrors.New("command not found")

	// ErrCommandFailed indicates a command exited with a non-zero status
	ErrCommandFailed = stderrors.New("command failed")

	// ErrInvalidConfig indicates configuration is invalid or incomplete
	ErrInvalidConfig = stderrors.New("invalid configuration")

	// ErrParseFailure indicates parsing of tool output failed
	ErrParseFailure = stderrors.New("parse failure")

	// ErrUnavailable indicates a fact could not be gathered on this system
	ErrUnavailable = stderrors.New("unavailable")
)

// Wrap wraps an error with context message and preserves the underlying error chain.
// Use this to add context while maintaining error identity for stderrors.Is checks.
func Wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", msg, err)
}

// New creates a new error with formatted message.
func New(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target type.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
