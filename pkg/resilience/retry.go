package resilience

import (
	"math"
	"math/rand"
	"time"

	"github.com/fleetbook/resilience/pkg/errors"
)

// Policy decides whether and when a failed operation should be retried.
// Implementations are immutable values, cheap to create per call site and
// safe to share between goroutines.
type Policy interface {
	// MaxRetries is the number of retries after the initial attempt
	MaxRetries() int
	// DelayFor returns the delay before retry number attempt (0-based)
	DelayFor(attempt int) time.Duration
	// IsRetryable reports whether the error is worth retrying
	IsRetryable(err error) bool
}

// NoRetry never retries. Use it for non-idempotent writes where a blind
// retry could duplicate the effect.
type NoRetry struct{}

func (NoRetry) MaxRetries() int                  { return 0 }
func (NoRetry) DelayFor(attempt int) time.Duration { return 0 }
func (NoRetry) IsRetryable(err error) bool       { return false }

// FixedDelay retries with a constant delay between attempts
type FixedDelay struct {
	Retries   int
	Delay     time.Duration
	Retryable func(error) bool
}

func (p FixedDelay) MaxRetries() int                  { return p.Retries }
func (p FixedDelay) DelayFor(attempt int) time.Duration { return p.Delay }

func (p FixedDelay) IsRetryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return errors.IsRetryable(err)
}

// LinearBackoff retries with a delay that grows linearly with the attempt
// number, capped at MaxDelay
type LinearBackoff struct {
	Retries      int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func (p LinearBackoff) MaxRetries() int { return p.Retries }

func (p LinearBackoff) DelayFor(attempt int) time.Duration {
	delay := p.InitialDelay * time.Duration(attempt+1)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

func (p LinearBackoff) IsRetryable(err error) bool {
	return errors.IsRetryable(err)
}

// ExponentialBackoff retries with exponentially growing delays perturbed by
// jitter. The jitter desynchronizes clients that failed at the same moment,
// so a recovering backend is not hit by a synchronized retry storm.
type ExponentialBackoff struct {
	Retries      int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// Multiplier defaults to 2.0 when zero
	Multiplier float64
	// JitterFactor perturbs the delay by up to ± this fraction of its own
	// magnitude; defaults to 0.1 when zero
	JitterFactor float64
	Retryable    func(error) bool
}

func (p ExponentialBackoff) MaxRetries() int { return p.Retries }

func (p ExponentialBackoff) DelayFor(attempt int) time.Duration {
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	jitterFactor := p.JitterFactor
	if jitterFactor <= 0 {
		jitterFactor = 0.1
	}

	delay := float64(p.InitialDelay) * math.Pow(multiplier, float64(attempt))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	// Uniform draw in [-jitterFactor, +jitterFactor] of the capped delay.
	jitter := (rand.Float64()*2 - 1) * jitterFactor * delay
	delay += jitter
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

func (p ExponentialBackoff) IsRetryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return errors.IsRetryable(err)
}

// DefaultPolicy returns the recommended policy for ordinary idempotent calls
func DefaultPolicy() Policy {
	return ExponentialBackoff{
		Retries:      3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// AggressivePolicy returns a preset for critical idempotent reads that
// should feel instantaneous, such as fetching vehicle availability
func AggressivePolicy() Policy {
	return ExponentialBackoff{
		Retries:      5,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     15 * time.Second,
		Multiplier:   1.5,
		JitterFactor: 0.1,
	}
}

// ConservativePolicy returns a preset for expensive or semi-idempotent
// operations where hammering the backend does more harm than good
func ConservativePolicy() Policy {
	return ExponentialBackoff{
		Retries:      2,
		InitialDelay: 2 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}
