package civitai

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrInvalidConfig indicates invalid client configuration
	ErrInvalidConfig = errors.New("invalid civitai configuration")
	// ErrFetchFailed is the single failure kind reported by FetchMedia
	ErrFetchFailed = errors.New("failed to fetch media from civitai")
)

// APIError represents a non-2xx response from the Civitai API
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("civitai API error: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound checks if the error indicates a not found response
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsRateLimited checks if the API asked us to slow down
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}
