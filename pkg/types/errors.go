// Package types defines error types
package types

import (
	"errors"
	"fmt"
	"time"
)

// Predefined errors
var (
	// ErrUnauthorized indicates the backend rejected the caller's credentials
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBadRequest indicates the backend rejected the request itself
	ErrBadRequest = errors.New("bad request")

	// ErrBadResponse indicates a response body that could not be interpreted
	ErrBadResponse = errors.New("malformed response")

	// ErrUnavailable indicates the backend is temporarily unable to answer
	ErrUnavailable = errors.New("backend unavailable")

	// ErrInvalidConfig indicates an invalid configuration value
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrPanic indicates a recovered panic inside polling control flow
	ErrPanic = errors.New("panic during polling")
)

// ErrorClass classifies an error for retry purposes
type ErrorClass int

const (
	// ClassRetryable errors consume an attempt and polling continues
	ClassRetryable ErrorClass = iota
	// ClassTerminal errors stop polling immediately
	ClassTerminal
)

// String returns the string representation of ErrorClass
func (c ErrorClass) String() string {
	switch c {
	case ClassRetryable:
		return "retryable"
	case ClassTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// ClassifiedError attaches a retry classification to an error
type ClassifiedError struct {
	// Err is the underlying error
	Err error

	// Class decides whether polling continues
	Class ErrorClass

	// StatusCode is the transport status code, 0 when not applicable
	StatusCode int

	// RetryAfter is the suggested retry delay, 0 when unknown
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *ClassifiedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %v", e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Class, e.Err)
}

// Unwrap returns the underlying error
func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// Terminal marks err as terminal
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Err: err, Class: ClassTerminal}
}

// Retryable marks err as retryable
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Err: err, Class: ClassRetryable}
}

// IsTerminal reports whether err was classified as terminal.
// Unclassified errors are retryable.
func IsTerminal(err error) bool {
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Class == ClassTerminal
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	return err != nil && !IsTerminal(err)
}

// GetRetryDelay returns the suggested retry delay
func GetRetryDelay(err error) time.Duration {
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.RetryAfter
	}
	return 0
}
