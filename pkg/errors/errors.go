// Package errors defines the sentinel errors shared across the search
// engine and an AppError wrapper that carries an HTTP status code for the
// service layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEncoding indicates the embedding encoder is unavailable or
	// returned malformed output (wrong dimensionality, empty response).
	ErrEncoding = errors.New("encoding failed")

	// ErrIndexUnavailable indicates a lexical or vector index handle is
	// missing or could not be loaded.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrNoSearchBackend is returned when both search branches degraded
	// and no results can be produced at all.
	ErrNoSearchBackend = errors.New("no search backend available")

	// ErrInvalidQuery indicates a query that cannot be executed. An empty
	// query is NOT invalid: it yields an empty result set without error.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrCache indicates internal cache corruption. Caching is an
	// optimization, so callers bypass the cache rather than fail.
	ErrCache = errors.New("cache error")

	// ErrTimeout indicates an operation exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")
)

// AppError pairs a sentinel error with a human-readable message and the
// HTTP status the service layer should respond with.
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

// HTTPStatusCode maps an error to the HTTP status the handler should use.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoSearchBackend), errors.Is(err, ErrIndexUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrEncoding):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
