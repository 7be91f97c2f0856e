// Package errors provides the standardized error taxonomy for the price pipeline
// and the request orchestration around it.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Data errors: the offending record is dropped, the pipeline continues.
	ErrCodeMalformedData  ErrorCode = "MALFORMED_DATA"
	ErrCodeInvalidFilter  ErrorCode = "INVALID_FILTER"
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeSchemaMismatch ErrorCode = "SCHEMA_VALIDATION_FAILED"

	// Transport errors.
	ErrCodeNetworkFailure ErrorCode = "NETWORK_FAILURE"
	ErrCodeBackendStatus  ErrorCode = "BACKEND_STATUS"
	ErrCodeSearchTimeout  ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"

	// Expected outcomes of fast typing and navigation. Never user-visible.
	ErrCodeRequestAborted ErrorCode = "REQUEST_ABORTED"
	ErrCodeStaleResponse  ErrorCode = "STALE_RESPONSE"

	// Side stores.
	ErrCodeCacheFailure   ErrorCode = "CACHE_FAILURE"
	ErrCodeStorageFailure ErrorCode = "STORAGE_FAILURE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns e with an extra metadata entry.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// ==========================
// 2. Error Constructors
// ==========================

// NewMalformedDataError reports a record that could not be normalized.
func NewMalformedDataError(record, details string) *StandardError {
	return newError(ErrCodeMalformedData, "Malformed backend record", fmt.Sprintf("record: %s, %s", record, details), false, nil)
}

// NewInvalidFilterError reports a filter value outside the accepted domain.
func NewInvalidFilterError(details string) *StandardError {
	return newError(ErrCodeInvalidFilter, "Invalid filter value", details, false, nil)
}

// NewInvalidRequestError reports a malformed inbound API request.
func NewInvalidRequestError(details string) *StandardError {
	return newError(ErrCodeInvalidRequest, "Invalid request", details, false, nil)
}

// NewSchemaMismatchError reports a payload that failed JSON schema validation.
func NewSchemaMismatchError(endpoint string, problems []string) *StandardError {
	return newError(ErrCodeSchemaMismatch, "Backend payload failed schema validation",
		fmt.Sprintf("endpoint: %s, problems: %s", endpoint, strings.Join(problems, "; ")), false, nil)
}

// NewNetworkFailureError creates a retryable transport error.
func NewNetworkFailureError(endpoint string, err error) *StandardError {
	return newError(ErrCodeNetworkFailure, "Backend request failed",
		fmt.Sprintf("endpoint: %s, error: %v", endpoint, err), true, err)
}

// NewBackendStatusError reports a non-2xx response. 5xx responses are retryable.
func NewBackendStatusError(endpoint string, status int) *StandardError {
	return newError(ErrCodeBackendStatus, "Backend returned an error status",
		fmt.Sprintf("endpoint: %s, status: %d", endpoint, status), status >= 500, nil).
		WithMetadata("status", status)
}

// NewSearchTimeoutError reports a first-page search that exceeded its budget.
func NewSearchTimeoutError(query string, err error) *StandardError {
	return newError(ErrCodeSearchTimeout, "Search timed out", fmt.Sprintf("query: %s", query), true, err)
}

// NewNotFoundError reports a missing product or resource.
func NewNotFoundError(resource string) *StandardError {
	return newError(ErrCodeNotFound, "Resource not found", fmt.Sprintf("resource: %s", resource), false, nil)
}

// NewRequestAbortedError wraps an intentional cancellation.
func NewRequestAbortedError(err error) *StandardError {
	return newError(ErrCodeRequestAborted, "Request aborted", "", false, err)
}

// NewStaleResponseError marks a response whose provenance no longer matches current state.
func NewStaleResponseError(requested, current string) *StandardError {
	return newError(ErrCodeStaleResponse, "Stale response discarded",
		fmt.Sprintf("requested: %q, current: %q", requested, current), false, nil)
}

// NewCacheFailureError reports a cache read/write failure. Callers fall through to the backend.
func NewCacheFailureError(err error) *StandardError {
	return newError(ErrCodeCacheFailure, "Cache operation failed", err.Error(), true, err)
}

// NewStorageFailureError reports a key-value storage failure.
func NewStorageFailureError(op string, err error) *StandardError {
	return newError(ErrCodeStorageFailure, "Storage operation failed", fmt.Sprintf("op: %s, error: %v", op, err), true, err)
}

// ==========================
// 3. Classification
// ==========================

// Classify normalizes any error into a StandardError.
func Classify(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	switch {
	case stderrors.Is(err, context.Canceled):
		return NewRequestAbortedError(err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return newError(ErrCodeSearchTimeout, "Request timed out", err.Error(), true, err)
	default:
		return newError(ErrCodeNetworkFailure, "Unexpected error", err.Error(), true, err)
	}
}

// CodeOf returns the classified code for err, or "" for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return Classify(err).Code
}

// IsAbort reports whether err is an intentional cancellation.
func IsAbort(err error) bool {
	return CodeOf(err) == ErrCodeRequestAborted
}

// GetRetryCount returns how many times the backend client retries a given code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeNetworkFailure:
		return 2
	case ErrCodeBackendStatus, ErrCodeCacheFailure, ErrCodeStorageFailure:
		return 1
	default:
		return 0
	}
}

// IsRetryable reports whether the backend client should retry err.
func IsRetryable(err error) bool {
	std := Classify(err)
	return std != nil && std.Retryable && GetRetryCount(std.Code) > 0
}

// IsUserVisible decides whether an error reaches the UI. Aborts and stale
// responses never do; everything else only on a fresh, page-1 fetch.
func IsUserVisible(code ErrorCode, firstPage bool) bool {
	switch code {
	case "", ErrCodeRequestAborted, ErrCodeStaleResponse:
		return false
	case ErrCodeMalformedData:
		return false
	default:
		return firstPage
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeMalformedData, ErrCodeInvalidFilter, ErrCodeInvalidRequest, ErrCodeSchemaMismatch:
		return "DATA"
	case ErrCodeNetworkFailure, ErrCodeBackendStatus, ErrCodeSearchTimeout, ErrCodeNotFound:
		return "NETWORK"
	case ErrCodeRequestAborted, ErrCodeStaleResponse:
		return "EXPECTED"
	case ErrCodeCacheFailure, ErrCodeStorageFailure:
		return "STORAGE"
	default:
		return "OTHER"
	}
}
