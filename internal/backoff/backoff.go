// Package backoff provides a pure exponential backoff policy. Delay
// computation is separated from sleeping so retry behaviour is testable
// without real time.
package backoff

import (
	"context"
	"time"
)

// Default policy values, matching the source API's observed throttling.
const (
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 30 * time.Second
	DefaultMaxAttempts = 3
)

// Policy computes retry delays: base delay doubling per attempt, capped,
// with a bounded number of attempts.
type Policy struct {
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the computed delay.
	MaxDelay time.Duration

	// MaxAttempts bounds the number of retries. Zero disables retries.
	MaxAttempts int
}

// DefaultPolicy returns the standard retry policy.
func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// Delay returns the wait before retry number attempt (1-based) and
// whether a retry is allowed at all. Attempts beyond MaxAttempts give up.
func (p Policy) Delay(attempt int) (time.Duration, bool) {
	if attempt < 1 || attempt > p.MaxAttempts {
		return 0, false
	}

	d := p.BaseDelay << (attempt - 1)
	if d > p.MaxDelay || d < 0 {
		d = p.MaxDelay
	}
	return d, true
}

// Sleeper blocks for a duration, honouring context cancellation.
// Production code uses Sleep; tests inject a recording stub.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
