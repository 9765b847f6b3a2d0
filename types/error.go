package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so callers can decide whether to resubmit.
type ErrorKind string

const (
	// ErrValidation marks malformed or incomplete agent/run input. Not retryable.
	ErrValidation ErrorKind = "VALIDATION_ERROR"
	// ErrGraphValidation marks a structural graph problem (dangling edge, cycle,
	// empty agent) detected before any node executes. Not retryable.
	ErrGraphValidation ErrorKind = "GRAPH_VALIDATION_ERROR"
	// ErrFileProcessing marks an upstream text-extraction failure. Retryable by
	// re-uploading the document.
	ErrFileProcessing ErrorKind = "FILE_PROCESSING_ERROR"
	// ErrAIProvider marks a provider call failure. Retryable when caused by
	// quota or timeout, fatal when the request itself was malformed.
	ErrAIProvider ErrorKind = "AI_PROVIDER_ERROR"
	// ErrConnectorNotFound marks a reference to an unregistered connector. Not
	// retryable; the agent configuration must be fixed.
	ErrConnectorNotFound ErrorKind = "CONNECTOR_NOT_FOUND"
	// ErrInternal marks an unexpected failure inside the execution core.
	ErrInternal ErrorKind = "INTERNAL_ERROR"
)

// Error is the structured error carried across the execution core. Every error
// surfaced to a caller has a machine kind, a user-facing message, and a
// retryable flag; raw stack traces never leave the process.
type Error struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given kind and message.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithCause attaches the underlying cause.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider records the provider that produced the error.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// WithHTTPStatus sets the HTTP status a transport layer should map this to.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// IsRetryable reports whether err is, or wraps, a retryable *Error.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// KindOf extracts the error kind, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
