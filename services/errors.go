package services

import (
	"context"
	"errors"
	"fmt"
)

// Error taxonomy for the generation pipeline. Recoverable errors are retried
// by re-entering the same workflow step; fatal ones return control to the
// previous interactive state with the message attached.

// ValidationError is a local input problem, it never reaches the network.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// AuthError requires the user to re-authenticate with the provider. No retry.
type AuthError struct {
	Provider string
	Status   int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed (status %d), please re-authenticate", e.Provider, e.Status)
}

// RateLimitedError maps HTTP 429, retryable after backoff.
type RateLimitedError struct {
	Provider string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s rate limit reached, retry later", e.Provider)
}

// ServiceUnavailableError covers 5xx responses, transport failures and
// timeouts. Retryable.
type ServiceUnavailableError struct {
	Provider string
	Cause    error
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Cause)
}

func (e *ServiceUnavailableError) Unwrap() error { return e.Cause }

// MalformedResponseError is fatal for the attempt and surfaced verbatim.
type MalformedResponseError struct {
	Provider string
	Detail   string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s returned malformed response: %s", e.Provider, e.Detail)
}

// Retryable reports whether the workflow should re-enter the failed step with
// the same prompt/asset instead of surfacing the error.
func Retryable(err error) bool {
	var rateLimited *RateLimitedError
	var unavailable *ServiceUnavailableError
	return errors.As(err, &rateLimited) || errors.As(err, &unavailable)
}

// Cancelled reports a caller-initiated cancellation, which must land the
// session back in the prior interactive state without an error banner.
func Cancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
