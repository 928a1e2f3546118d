package auth0

import (
	"fmt"
	"time"
)

// ============================================================================
// Error Kinds
// ============================================================================

// ErrorKind classifies a management API failure so the retry policy can
// dispatch on it instead of on concrete error types.
type ErrorKind string

const (
	// KindTransient covers connection and timeout failures where no HTTP
	// response was received.
	KindTransient ErrorKind = "transient"

	// KindRateLimited is an HTTP 429 response.
	KindRateLimited ErrorKind = "rate_limited"

	// KindServer is an HTTP 5xx response in the retryable set.
	KindServer ErrorKind = "server"

	// KindClient is any other non-2xx response. Never retried.
	KindClient ErrorKind = "client"
)

// ============================================================================
// APIError
// ============================================================================

// APIError represents a failed management API call. It carries the retryable
// kind, the HTTP status (0 for transport failures), and the error code and
// message parsed from the Auth0 error body when present.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	ErrorCode  string
	Message    string

	// RetryAfter holds the parsed numeric Retry-After header, if the
	// response carried one. Zero means absent.
	RetryAfter time.Duration

	// Err is the underlying transport error for transient failures.
	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Kind == KindTransient {
		return fmt.Sprintf("auth0: request failed: %v", e.Err)
	}
	if e.ErrorCode != "" {
		return fmt.Sprintf("auth0: HTTP %d %s: %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("auth0: HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap exposes the underlying transport error, if any.
func (e *APIError) Unwrap() error { return e.Err }

// Retryable reports whether the retry policy may attempt the request again.
func (e *APIError) Retryable() bool { return e.Kind != KindClient }
