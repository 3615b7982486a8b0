package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeNoConnectivity     ErrorType = "no_connectivity"
	ErrorTypeServiceUnavailable ErrorType = "service_unavailable"
	ErrorTypeTimeout            ErrorType = "timeout"
	ErrorTypeUnauthorized       ErrorType = "unauthorized"
	ErrorTypeForbidden          ErrorType = "forbidden"
	ErrorTypeValidation         ErrorType = "validation"
	ErrorTypeRateLimited        ErrorType = "rate_limited"
	ErrorTypeServer             ErrorType = "server"
	ErrorTypeTransport          ErrorType = "transport"
	ErrorTypeCanceled           ErrorType = "canceled"
	ErrorTypeUnknown            ErrorType = "unknown"
)

// AppError represents an application error with context
type AppError struct {
	Type       ErrorType         `json:"type"`
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	StatusCode int               `json:"status_code,omitempty"`
	RetryAfter time.Duration     `json:"retry_after,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	Cause      error             `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithStatusCode records the HTTP-like status code the error was derived from
func (e *AppError) WithStatusCode(status int) *AppError {
	e.StatusCode = status
	return e
}

// Common error constructors
func NewNoConnectivityError() *AppError {
	return NewAppError(ErrorTypeNoConnectivity, "NO_CONNECTIVITY", "no internet connection")
}

// NewServiceUnavailableError reports an open circuit. retryAfter tells the
// caller how long until the breaker will admit a probe again.
func NewServiceUnavailableError(dependency string, retryAfter time.Duration) *AppError {
	err := NewAppError(ErrorTypeServiceUnavailable, "SERVICE_UNAVAILABLE",
		fmt.Sprintf("%s is temporarily unavailable", dependency))
	err.RetryAfter = retryAfter
	return err.WithDetail("dependency", dependency)
}

func NewTimeoutError(operation string) *AppError {
	return NewAppError(ErrorTypeTimeout, "TIMEOUT", fmt.Sprintf("%s timed out", operation))
}

func NewUnauthorizedError(message string) *AppError {
	return NewAppError(ErrorTypeUnauthorized, "UNAUTHORIZED", message)
}

func NewForbiddenError(message string) *AppError {
	return NewAppError(ErrorTypeForbidden, "FORBIDDEN", message)
}

func NewValidationError(message string) *AppError {
	return NewAppError(ErrorTypeValidation, "VALIDATION_ERROR", message)
}

func NewRateLimitedError(message string) *AppError {
	return NewAppError(ErrorTypeRateLimited, "RATE_LIMITED", message)
}

func NewServerError(message string) *AppError {
	return NewAppError(ErrorTypeServer, "SERVER_ERROR", message)
}

func NewTransportError(message string) *AppError {
	return NewAppError(ErrorTypeTransport, "TRANSPORT_ERROR", message)
}

func NewCanceledError(operation string) *AppError {
	return NewAppError(ErrorTypeCanceled, "CANCELED", fmt.Sprintf("%s was canceled", operation))
}

func NewUnknownError(message string) *AppError {
	return NewAppError(ErrorTypeUnknown, "UNKNOWN_ERROR", message)
}

// FromHTTPStatus classifies an HTTP-like status code into a typed error.
// Only 408, 429 and the 5xx family map to retryable types; every other 4xx
// indicates a request or auth problem that will not self-resolve.
func FromHTTPStatus(status int, message string) *AppError {
	if message == "" {
		message = http.StatusText(status)
	}

	var err *AppError
	switch {
	case status == http.StatusRequestTimeout:
		err = NewTimeoutError(message)
	case status == http.StatusTooManyRequests:
		err = NewRateLimitedError(message)
	case status == http.StatusUnauthorized:
		err = NewUnauthorizedError(message)
	case status == http.StatusForbidden:
		err = NewForbiddenError(message)
	case status >= 500 && status < 600:
		err = NewServerError(message)
	case status >= 400 && status < 500:
		err = NewValidationError(message)
	default:
		err = NewUnknownError(message)
	}

	return err.WithStatusCode(status)
}

// Classify converts an arbitrary error into an AppError. Already-typed
// errors pass through unchanged; cancellation is never absorbed into a
// generic transport failure.
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewCanceledError("operation").WithCause(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError("network operation").WithCause(err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NewTransportError("DNS resolution failed").WithCause(err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return NewTransportError("network operation failed").WithCause(err)
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return NewTransportError("connection failed").WithCause(err)
	}

	// Fail closed: anything unclassified is not retried.
	return NewUnknownError(err.Error()).WithCause(err)
}

// IsRetryable reports whether an error is worth retrying. Transient
// network and server-side failures are; request, auth and cancellation
// errors are not. Unclassified errors are not retried (fail closed).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	switch Classify(err).Type {
	case ErrorTypeTimeout, ErrorTypeRateLimited, ErrorTypeServer, ErrorTypeTransport:
		return true
	default:
		return false
	}
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetCode returns the error code if it's an AppError
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN_ERROR"
}

// GetType returns the error type if it's an AppError
func GetType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}
