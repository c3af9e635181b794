package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrStringExists         = errors.New("string already exists")
	ErrStringNotFound       = errors.New("string not found")
	ErrConflictingFilters   = errors.New("conflicting filters")
	ErrUninterpretableQuery = errors.New("uninterpretable query")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidType          = errors.New("invalid data type")
	ErrRateLimited          = errors.New("rate limit exceeded")
	ErrInternal             = errors.New("internal error")
	ErrTimeout              = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrStringNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrStringExists):
		return http.StatusConflict
	case errors.Is(err, ErrConflictingFilters), errors.Is(err, ErrInvalidType):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUninterpretableQuery):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message that is safe to show to API clients.
// Internal failures never leak their cause.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}

	switch {
	case errors.Is(err, ErrStringNotFound):
		return "String not found"
	case errors.Is(err, ErrStringExists):
		return "String already exists"
	case errors.Is(err, ErrConflictingFilters):
		return "Conflicting filters: min_length cannot be greater than max_length"
	case errors.Is(err, ErrUninterpretableQuery):
		return "Unable to parse natural language query"
	case errors.Is(err, ErrInvalidInput):
		return "Invalid input"
	case errors.Is(err, ErrInvalidType):
		return "Invalid data type"
	case errors.Is(err, ErrRateLimited):
		return "Rate limit exceeded"
	case errors.Is(err, ErrTimeout):
		return "Request timed out"
	default:
		return "Internal server error"
	}
}
