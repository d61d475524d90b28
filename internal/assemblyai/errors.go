package assemblyai

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("assemblyai: status %d: %s", e.StatusCode, e.Message)
}

// Transient reports whether the failure is worth retrying: rate limiting and
// server-side errors are, client errors are not.
func (e *APIError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsTransient classifies an upstream error as retryable. Network-level
// failures (anything that is not a typed API response) count as transient.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	if errors.Is(err, errTranscriptFailed) {
		return false
	}
	return true
}

// errTranscriptFailed marks a job that the API reported as failed; retrying
// the same audio is pointless.
var errTranscriptFailed = errors.New("transcript processing failed")
