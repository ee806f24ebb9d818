// Package errors defines stable error codes and the typed error carried
// across the map-generation pipeline.
package errors

import (
	"errors"
	"fmt"
)

// Code represents stable error codes for all failure modes
type Code string

const (
	// ParseFailed indicates a single file could not be parsed; the file is
	// skipped and the run continues
	ParseFailed Code = "PARSE_ERROR"
	// CacheCorruption indicates a cache entry could not be decoded; the
	// entry is discarded and rebuilt
	CacheCorruption Code = "CACHE_CORRUPTION"
	// ConfigFatal indicates the cache directory or store is unusable; map
	// generation continues in degraded no-cache mode
	ConfigFatal Code = "CONFIG_FATAL"
	// Internal indicates an unexpected error
	Internal Code = "INTERNAL_ERROR"
)

// Error is a classified error with an optional file path and cause.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
	cause   error
}

// New creates a classified error.
func New(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// WithPath attaches the file path the error originated from.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// CodeOf returns the Code of err if it is (or wraps) an *Error, else Internal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Internal
}

// IsFatalConfig reports whether err forces degraded no-cache mode.
func IsFatalConfig(err error) bool {
	return CodeOf(err) == ConfigFatal
}
