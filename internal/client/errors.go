package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized is wrapped by every APIError with status 401. By the time
// a caller sees it, the session has already been invalidated.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response of the backend.
type APIError struct {
	StatusCode int
	// Message is the "error" field of the response payload, if any.
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// NetworkError means no response was received at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetworkError reports whether err was caused by a missing response.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
