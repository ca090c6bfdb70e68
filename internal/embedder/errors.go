package embedder

import (
	"errors"
	"fmt"
	"net/http"
)

// ProviderError is a failed provider call with its HTTP-style status code.
type ProviderError struct {
	// Provider is the client name, e.g. "gemini".
	Provider string
	// Code is the HTTP status or API error code. Zero when unknown.
	Code int
	// Err is the underlying SDK or transport error.
	Err error
}

func (e *ProviderError) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("%s embedding provider: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s embedding provider: status %d: %v", e.Provider, e.Code, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retriable reports whether the call may succeed if repeated: rate limited
// (429) or service unavailable (503).
func (e *ProviderError) Retriable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code == http.StatusServiceUnavailable
}

// IsRetriable reports whether err wraps a retriable [*ProviderError].
func IsRetriable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retriable()
}
