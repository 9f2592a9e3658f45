// Package errors provides the unified error type and factory functions for
// TechRadar-Intelligence. Every layer of the service (domain, application,
// infrastructure, interfaces) uses AppError as the single carrier for
// structured error information, enabling consistent HTTP responses, logging,
// and metrics labels.
package errors

import (
	"errors"
	"fmt"
)

// ─────────────────────────────────────────────────────────────────────────────
// AppError — the canonical service error type
// ─────────────────────────────────────────────────────────────────────────────

// AppError is the single structured error type used throughout the service.
// It satisfies the standard error interface and supports Go 1.13+ error
// wrapping so that errors.Is / errors.As / errors.Unwrap work transparently
// across all layers.
//
// Usage:
//
//	return errors.New(errors.CodeStoreQueryFailed, "patent year aggregation failed")
//	return errors.Wrap(err, errors.CodeAPIRequestFailed, "openaire request failed")
//	return errors.Validation("technology must not be empty").WithDetail("field=technology")
type AppError struct {
	// Code is the typed error code that identifies the failure category.
	Code ErrorCode

	// Message is the primary human-readable description, suitable for
	// inclusion in API responses returned to callers.
	Message string

	// Detail carries supplementary context (field names, query parameters)
	// that aids debugging without leaking internals to end users.
	Detail string

	// Cause is the underlying error, enabling errors.Is / errors.As traversal
	// of the full chain.
	Cause error

	// Stack holds the formatted call stack captured at creation. Populated by
	// New and Wrap unless compiled with the "nostack" build tag. It is not
	// part of Error() output; structured logging reads the field directly.
	Stack string
}

// Error implements the standard error interface.
// Format: "[<code>] <message>: <detail>", detail omitted when empty.
func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As to
// traverse the chain without boilerplate at call sites.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// ─────────────────────────────────────────────────────────────────────────────
// Fluent builder methods
// ─────────────────────────────────────────────────────────────────────────────

// WithDetail returns a shallow copy of the receiver with Detail set.
// Safe to call on a nil pointer (returns nil).
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a shallow copy of the receiver with Cause set. Use this
// to attach a lower-level error to an already-constructed AppError without
// going through Wrap.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// ─────────────────────────────────────────────────────────────────────────────
// Primary factory functions
// ─────────────────────────────────────────────────────────────────────────────

// New constructs a fresh AppError with the given code and message.
// A call-stack snapshot is captured unless compiled with -tags nostack.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Newf constructs a fresh AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(1),
	}
}

// Wrap constructs an AppError that wraps an existing error. If err is nil,
// Wrap returns nil so it can be used inline:
//
//	return errors.Wrap(row.Err(), errors.CodeStoreQueryFailed, "scan failed")
//
// When err is already an *AppError and code is CodeUnknown the original code
// is preserved, so cross-layer propagation keeps the original classification.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
		Stack:   captureStack(1),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Error-chain inspection helpers
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any error in err's chain is an *AppError with the
// given code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode extracts the ErrorCode from the first *AppError in err's chain.
// Returns CodeOK for nil and CodeUnknown when no AppError is present. Useful
// in middleware and metrics that need a single label without coupling to
// specific domain errors.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// IsValidation reports whether err carries a request-validation code.
func IsValidation(err error) bool {
	return IsCode(err, CodeValidation) ||
		IsCode(err, CodeInvalidTechnology) ||
		IsCode(err, CodeInvalidYears)
}

// IsNotFound reports whether err carries the not-found code.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsUnavailable reports whether err indicates a store or upstream that cannot
// serve requests right now.
func IsUnavailable(err error) bool {
	return IsCode(err, CodeUnavailable) ||
		IsCode(err, CodeStoreUnavailable) ||
		IsCode(err, CodeAPICircuitOpen)
}

// HTTPStatus resolves the HTTP status code for err via its error code.
// Unknown and unclassified errors map to 500.
func HTTPStatus(err error) int {
	return ErrorCodeHTTPStatus(GetCode(err))
}

// ─────────────────────────────────────────────────────────────────────────────
// Convenience factories for the most common conditions
// ─────────────────────────────────────────────────────────────────────────────

// Validation constructs a CodeValidation AppError. Prefer
// CodeInvalidTechnology / CodeInvalidYears for the radar request fields.
func Validation(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message, Stack: captureStack(1)}
}

// InvalidParam constructs a CodeBadRequest AppError, used for programmer
// errors surfaced by kernels (e.g. a sample target below one).
func InvalidParam(message string) *AppError {
	return &AppError{Code: CodeBadRequest, Message: message, Stack: captureStack(1)}
}

// NotFound constructs a CodeNotFound AppError.
func NotFound(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message, Stack: captureStack(1)}
}

// Internal constructs a CodeInternal AppError. Always log the underlying
// cause before or after calling Internal.
func Internal(message string) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Stack: captureStack(1)}
}

// Unavailable constructs a CodeUnavailable AppError.
func Unavailable(message string) *AppError {
	return &AppError{Code: CodeUnavailable, Message: message, Stack: captureStack(1)}
}

// Timeout constructs a CodeTimeout AppError.
func Timeout(message string) *AppError {
	return &AppError{Code: CodeTimeout, Message: message, Stack: captureStack(1)}
}

// RateLimited constructs a CodeTooManyRequests AppError.
func RateLimited(message string) *AppError {
	return &AppError{Code: CodeTooManyRequests, Message: message, Stack: captureStack(1)}
}
