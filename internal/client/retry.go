package client

import (
	"errors"

	"github.com/danmuck/relayctl/internal/session"
)

// RetryPolicy bounds how the fetch engine re-attempts a failed exchange.
type RetryPolicy struct {
	// MaxAttempts is the total attempt budget, first try included.
	MaxAttempts int

	Backoff session.BackoffConfig

	// RetryOn decides whether an attempt failure is worth another try.
	// Nil means DefaultRetryable.
	RetryOn func(error) bool
}

// DefaultRetryPolicy retries timeouts and stale-response mismatches with the
// session's default backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     session.DefaultConfig().Backoff,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.Backoff.InitialDelay <= 0 {
		p.Backoff.InitialDelay = def.Backoff.InitialDelay
	}
	if p.Backoff.Multiplier < 1.0 {
		p.Backoff.Multiplier = def.Backoff.Multiplier
	}
	if p.Backoff.MaxDelay <= 0 {
		p.Backoff.MaxDelay = def.Backoff.MaxDelay
	}
	if p.RetryOn == nil {
		p.RetryOn = DefaultRetryable
	}
	return p
}

// DefaultRetryable treats exchange timeouts and correlation mismatches as
// transient. Connection-fatal transport errors, malformed responses, and
// validation failures are not retryable.
func DefaultRetryable(err error) bool {
	return errors.Is(err, session.ErrTimeout) || errors.Is(err, ErrCorrelation)
}
