package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents application error codes
type ErrorCode string

const (
	ErrCodeInvalidKey          ErrorCode = "INVALID_KEY"
	ErrCodeSessionRequired     ErrorCode = "SESSION_REQUIRED"
	ErrCodeInvalidParameter    ErrorCode = "INVALID_PARAMETER"
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamError       ErrorCode = "UPSTREAM_ERROR"
	ErrCodeNoPlayableStream    ErrorCode = "NO_PLAYABLE_STREAM"
	ErrCodeProxyUpstreamError  ErrorCode = "PROXY_UPSTREAM_ERROR"
	ErrCodeStoreUnavailable    ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
)

// AppError represents an application error with code and context
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	Context    map[string]interface{}
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Context:    make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with application error
func WrapError(err error, code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Cause:      err,
		Context:    make(map[string]interface{}),
	}
}

// Common error constructors
func NewInvalidKeyError(message string) *AppError {
	return NewAppError(ErrCodeInvalidKey, message, http.StatusUnauthorized)
}

func NewSessionRequiredError() *AppError {
	return NewAppError(ErrCodeSessionRequired, "pro key requires an active session", http.StatusUnauthorized)
}

func NewInvalidParameterError(message string) *AppError {
	return NewAppError(ErrCodeInvalidParameter, message, http.StatusBadRequest)
}

func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func NewUpstreamUnavailableError(err error) *AppError {
	return WrapError(err, ErrCodeUpstreamUnavailable, "media platform unreachable", http.StatusGatewayTimeout)
}

func NewUpstreamStatusError(status int) *AppError {
	return NewAppError(ErrCodeUpstreamError, fmt.Sprintf("media platform returned status %d", status), http.StatusBadGateway).
		WithContext("upstream_status", status)
}

func NewNoPlayableStreamError() *AppError {
	return NewAppError(ErrCodeNoPlayableStream, "manifest has no playable video or audio stream", http.StatusBadGateway)
}

func NewProxyUpstreamError(status int) *AppError {
	return NewAppError(ErrCodeProxyUpstreamError, fmt.Sprintf("proxied fetch returned status %d", status), http.StatusBadGateway).
		WithContext("upstream_status", status)
}

func NewStoreUnavailableError(err error) *AppError {
	return WrapError(err, ErrCodeStoreUnavailable, "credential store unavailable", http.StatusServiceUnavailable)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

// IsAppError checks if error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	// Try to unwrap
	type unwrapper interface {
		Unwrap() error
	}

	if u, ok := err.(unwrapper); ok {
		return GetAppError(u.Unwrap())
	}

	return nil
}
