package client

import (
	"fmt"
	"time"
)

// ErrorKind classifies a failed lookup and determines retry eligibility.
type ErrorKind string

const (
	// KindNotFound means the login does not exist (HTTP 404). Terminal.
	KindNotFound ErrorKind = "not_found"

	// KindRateLimited means the request was throttled (HTTP 403).
	// Retryable after the server-directed delay.
	KindRateLimited ErrorKind = "rate_limited"

	// KindNetworkError means the request never produced an HTTP response.
	// Retryable with exponential backoff.
	KindNetworkError ErrorKind = "network_error"

	// KindAPIError covers any other upstream failure. Terminal.
	KindAPIError ErrorKind = "api_error"

	// KindProcessingError is synthesized when a whole chunk's execution
	// fails outside of individual lookups. Never produced by the client
	// itself.
	KindProcessingError ErrorKind = "processing_error"
)

// LookupError describes a failed lookup for one identifier.
type LookupError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string

	// RetryAfter is the server-estimated wait before a throttled request
	// may succeed. Only set for KindRateLimited.
	RetryAfter time.Duration

	Err error
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("lookup %s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("lookup %s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("lookup %s error: %s", e.Kind, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *LookupError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt can change the outcome.
func (e *LookupError) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindNetworkError:
		return true
	default:
		// NotFound and APIError waste the rate budget when retried;
		// ProcessingError is synthesized after the lookups already ran.
		return false
	}
}

// Result is the outcome of one lookup: exactly one of Profile or Err is
// set. Results are immutable once produced and shared read-only with
// callbacks.
type Result struct {
	Identifier string
	Profile    *Profile
	Err        *LookupError
}

// OK reports whether the lookup succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Success wraps a fetched profile as a Result.
func Success(identifier string, profile *Profile) Result {
	return Result{Identifier: identifier, Profile: profile}
}

// Failure wraps a lookup error as a Result.
func Failure(identifier string, err *LookupError) Result {
	return Result{Identifier: identifier, Err: err}
}

// ProcessingFailure synthesizes a Result for an identifier whose chunk
// failed as a whole, so no identifier is silently dropped.
func ProcessingFailure(identifier, message string) Result {
	return Failure(identifier, &LookupError{
		Kind:    KindProcessingError,
		Message: message,
	})
}
