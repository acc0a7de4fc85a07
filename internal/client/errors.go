package client

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrelation reports a response whose message id does not match the
	// in-flight request. Usually a stale reply from an earlier timed-out
	// exchange on the same session; retryable.
	ErrCorrelation = errors.New("client: response correlation mismatch")

	ErrScopeMismatch = errors.New("client: response scope does not match requested fqdn")
	ErrDuplicateKey  = errors.New("client: duplicate record key in response")
	ErrBadSignature  = errors.New("client: record signature verification failed")
)

// RelayRejectedError is a well-formed response whose status says the relay
// refused to serve the request. Never retried: the relay would answer the
// same way again.
type RelayRejectedError struct {
	Status uint32
}

func (e *RelayRejectedError) Error() string {
	return fmt.Sprintf("client: relay rejected request: status=%d", e.Status)
}

// RetriesExhaustedError wraps the last failure after the retry budget is
// spent.
type RetriesExhaustedError struct {
	Attempts int
	Cause    error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("client: retries exhausted after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Cause }
