package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the HTTP layer.
var (
	// ErrNotFound indicates the resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrAuthError indicates a rejected or missing API key.
	ErrAuthError = errors.New("authentication error")

	// ErrRateLimited indicates the service kept throttling after retries.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error")

	// ErrInvalidResponse indicates an unexpected response body.
	ErrInvalidResponse = errors.New("invalid response")
)

// APIError is a non-2xx response from a bibliographic service.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error (status %d)", e.Service, e.StatusCode)
}

// Unwrap maps well-known status codes onto the sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthError
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// IsNotFound returns true if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthError)
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// StatusFor converts an error into the diagnostic string shown to users.
func StatusFor(err error) string {
	if err == nil {
		return StatusOK
	}

	var apiErr *APIError
	switch {
	case errors.Is(err, context.Canceled):
		return "Canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	case errors.As(err, &apiErr):
		switch {
		case IsAuthError(apiErr):
			return fmt.Sprintf("Auth Error (%d)", apiErr.StatusCode)
		case IsRateLimited(apiErr):
			return fmt.Sprintf("Rate Limited (%d)", apiErr.StatusCode)
		case IsNotFound(apiErr):
			return "Not Found (404)"
		default:
			return fmt.Sprintf("HTTP Error (%d)", apiErr.StatusCode)
		}
	case errors.Is(err, ErrInvalidResponse):
		return "Invalid Response"
	default:
		return "Error: " + err.Error()
	}
}
