package inference

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEndpoint is returned when the client has no endpoint configured.
	ErrNoEndpoint = errors.New("inference: endpoint required")

	// ErrNoAPIKey is returned when the client has no prediction key configured.
	ErrNoAPIKey = errors.New("inference: prediction key required")

	// ErrEmptyImage is returned when Detect is called without image bytes.
	ErrEmptyImage = errors.New("inference: empty image")
)

// APIError is a non-2xx response from the prediction endpoint.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("inference: API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("inference: API error %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited returns true for HTTP 429 responses.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsAuthError returns true for HTTP 401 and 403 responses.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}
