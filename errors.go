package tidecrawl

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for the service's failure classes. Every error produced
// from an API response wraps exactly one of these, so callers can match the
// class with errors.Is and still reach the response detail through
// errors.As on *APIError.
var (
	ErrInvalidRequest  = errors.New("tidecrawl: invalid request")
	ErrUnauthorized    = errors.New("tidecrawl: unauthorized")
	ErrPaymentRequired = errors.New("tidecrawl: payment required")
	ErrForbidden       = errors.New("tidecrawl: website not supported")
	ErrNotFound        = errors.New("tidecrawl: not found")
	ErrRequestTimeout  = errors.New("tidecrawl: request timed out")
	ErrConflict        = errors.New("tidecrawl: conflict")
	ErrRateLimited     = errors.New("tidecrawl: rate limit exceeded")
	ErrInternal        = errors.New("tidecrawl: internal server error")
	ErrBadGateway      = errors.New("tidecrawl: bad gateway")
	ErrService         = errors.New("tidecrawl: service error")
)

// ErrWaitTimeout is returned when a Wait call or watcher exhausts its
// configured wall-clock budget before the job reaches a terminal state. It
// is a local deadline, distinct from the service's own 408 responses.
var ErrWaitTimeout = errors.New("tidecrawl: wait timeout exceeded")

// ErrNoAPIKey is returned by New when no API key is configured through
// options or the environment.
var ErrNoAPIKey = errors.New("tidecrawl: no API key provided")

// APIError describes a non-success response from the service.
type APIError struct {
	// Op names the operation that failed, e.g. "start crawl".
	Op string
	// StatusCode is the HTTP status the service answered with.
	StatusCode int
	// Message is the error text from the response body, when present.
	Message string
	// Details carries the response body's additional detail, when present.
	Details string

	class error
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tidecrawl: %s: status %d", e.Op, e.StatusCode)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Details != "" {
		b.WriteString(" (")
		b.WriteString(e.Details)
		b.WriteString(")")
	}
	return b.String()
}

// Unwrap exposes the sentinel class so errors.Is matches it.
func (e *APIError) Unwrap() error { return e.class }

func newAPIError(op string, statusCode int, message, details string) *APIError {
	return &APIError{
		Op:         op,
		StatusCode: statusCode,
		Message:    message,
		Details:    details,
		class:      classifyStatus(statusCode),
	}
}

// classifyStatus maps an HTTP status to its sentinel class. Unlisted 5xx
// codes fall back to ErrService and unlisted 4xx codes to ErrInvalidRequest.
func classifyStatus(statusCode int) error {
	switch statusCode {
	case http.StatusBadRequest:
		return ErrInvalidRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusPaymentRequired:
		return ErrPaymentRequired
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusRequestTimeout:
		return ErrRequestTimeout
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusInternalServerError:
		return ErrInternal
	case http.StatusBadGateway:
		return ErrBadGateway
	}
	if statusCode >= http.StatusInternalServerError {
		return ErrService
	}
	return ErrInvalidRequest
}
