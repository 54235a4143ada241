package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"

	// Host and store errors
	ErrorTypeUnavailable ErrorType = "unavailable"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeStorage     ErrorType = "storage"

	// System errors
	ErrorTypeInternal ErrorType = "internal"
	ErrorTypeExternal ErrorType = "external"
	ErrorTypeUnknown  ErrorType = "unknown"
)

var typeStatus = map[ErrorType]int{
	ErrorTypeValidation:  http.StatusBadRequest,
	ErrorTypeNotFound:    http.StatusNotFound,
	ErrorTypeConflict:    http.StatusConflict,
	ErrorTypeUnavailable: http.StatusServiceUnavailable,
	ErrorTypeTimeout:     http.StatusGatewayTimeout,
	ErrorTypeStorage:     http.StatusInternalServerError,
	ErrorTypeInternal:    http.StatusInternalServerError,
	ErrorTypeExternal:    http.StatusBadGateway,
}

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType      `json:"type"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	InnerError error          `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Type)
	}
	if e.InnerError != nil {
		return msg + ": " + e.InnerError.Error()
	}
	return msg
}

// Unwrap returns the inner error
func (e *AppError) Unwrap() error {
	return e.InnerError
}

// Is matches another AppError of the same type.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Type == t.Type
	}
	return false
}

// HTTPStatus returns the status code for the error type.
func (e *AppError) HTTPStatus() int {
	if s, ok := typeStatus[e.Type]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError
func New(errType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Code:    string(errType),
	}
}

// FromError converts a standard error to AppError
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	errType := ErrorTypeUnknown
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		errType = ErrorTypeTimeout
	case errors.Is(err, context.Canceled):
		errType = ErrorTypeUnavailable
	}

	return &AppError{
		Type:       errType,
		Code:       string(errType),
		InnerError: err,
	}
}

// Wrap wraps an error with a specific type and message
func Wrap(err error, errType ErrorType, message string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		InnerError: err,
		Code:       string(errType),
	}
}

// TypeOf returns the AppError type of err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	return FromError(err).Type
}

func NewValidation(message string) *AppError {
	return New(ErrorTypeValidation, message)
}

func NewNotFound(resource string, id any) *AppError {
	return New(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

func NewConflict(resource string, id any) *AppError {
	return New(ErrorTypeConflict, fmt.Sprintf("%s was modified concurrently", resource)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

func NewStorage(message string, err error) *AppError {
	return Wrap(err, ErrorTypeStorage, message)
}

// NewInternal reports a programming or wiring error.
func NewInternal(message string) *AppError {
	return New(ErrorTypeInternal, message)
}

// NewExternal reports a failure of a third-party service outside the store.
func NewExternal(message string, err error) *AppError {
	return Wrap(err, ErrorTypeExternal, message)
}

// Retryer retries operations that fail with retryable errors.
type Retryer struct {
	maxAttempts int
	retryDelay  func(attempt int) time.Duration
	retryable   func(error) bool
}

// NewRetryer creates a retryer with quadratic backoff that retries
// conflict, storage, timeout and unavailable errors.
func NewRetryer(maxAttempts int) *Retryer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Retryer{
		maxAttempts: maxAttempts,
		retryDelay: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * 10 * time.Millisecond
		},
		retryable: func(err error) bool {
			switch TypeOf(err) {
			case ErrorTypeConflict, ErrorTypeStorage, ErrorTypeTimeout, ErrorTypeUnavailable:
				return true
			}
			return false
		},
	}
}

// WithRetryDelay sets the retry delay function
func (r *Retryer) WithRetryDelay(fn func(int) time.Duration) *Retryer {
	r.retryDelay = fn
	return r
}

// Do runs fn until it succeeds, fails with a non-retryable error,
// runs out of attempts, or ctx is done.
func (r *Retryer) Do(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == r.maxAttempts || !r.retryable(lastErr) {
			break
		}

		timer := time.NewTimer(r.retryDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}
