package resilience

import (
	"sync"
	"time"

	"github.com/fleetbook/resilience/pkg/logging"
)

// CircuitState represents the state of the circuit breaker
type CircuitState int

const (
	// StateClosed - circuit is closed, requests are allowed
	StateClosed CircuitState = iota
	// StateOpen - circuit is open, requests are rejected
	StateOpen
	// StateHalfOpen - circuit is half-open, probe requests are allowed
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// BreakerConfig holds configuration for the circuit breaker
type BreakerConfig struct {
	// Name of the guarded dependency for logging/metrics
	Name string
	// FailureThreshold is the number of consecutive failures in the closed
	// state that trips the circuit
	FailureThreshold int
	// ResetTimeout is the period of the open state, after which the next
	// admission check transitions the breaker to half-open
	ResetTimeout time.Duration
	// SuccessThreshold is the number of consecutive successes needed in
	// half-open to close the circuit
	SuccessThreshold int
	// OnStateChange is called whenever the state of the circuit breaker changes
	OnStateChange func(name string, from CircuitState, to CircuitState)
}

// DefaultBreakerConfig returns a default configuration
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		SuccessThreshold: 2,
	}
}

// BreakerStats is a read-only snapshot of a circuit breaker
type BreakerStats struct {
	Name           string        `json:"name"`
	State          CircuitState  `json:"-"`
	StateLabel     string        `json:"state"`
	Failures       int           `json:"failures"`
	Successes      int           `json:"successes"`
	LastFailure    time.Time     `json:"last_failure,omitempty"`
	TimeUntilRetry time.Duration `json:"time_until_retry"`
}

// CircuitBreaker is a state machine that stops calling a failing dependency
// after repeated failures, giving it time to recover. State only changes
// through AllowRequest, RecordSuccess, RecordFailure and Reset; all of them
// are safe for concurrent use.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	resetTimeout     time.Duration
	successThreshold int
	onStateChange    func(name string, from CircuitState, to CircuitState)

	mutex       sync.Mutex
	state       CircuitState
	failures    int
	successes   int
	lastFailure time.Time

	now    func() time.Time
	logger *logging.Logger
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration
func NewCircuitBreaker(config BreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}

	return &CircuitBreaker{
		name:             config.Name,
		failureThreshold: config.FailureThreshold,
		resetTimeout:     config.ResetTimeout,
		successThreshold: config.SuccessThreshold,
		onStateChange:    config.OnStateChange,
		state:            StateClosed,
		now:              time.Now,
		logger:           logging.GetLogger(),
	}
}

// AllowRequest reports whether a request may proceed. In the open state the
// first call at or after the reset timeout transitions the breaker to
// half-open and is admitted as the first probe. Half-open admits every
// caller as a probe; probe volume is bounded by callers, not the breaker.
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed:
		return true

	case StateOpen:
		if cb.now().Sub(cb.lastFailure) >= cb.resetTimeout {
			cb.setState(StateHalfOpen)
			return true
		}
		cb.logger.Debug("Request rejected by open circuit",
			"name", cb.name,
			"time_until_retry", cb.timeUntilRetryLocked().String(),
		)
		return false

	default: // StateHalfOpen
		return true
	}
}

// RecordSuccess records a successful call against the breaker
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0

	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.setState(StateClosed)
		}

	case StateOpen:
		// A success should not be observable while open; nothing was admitted.
		cb.logger.Warn("Success recorded while circuit is open, ignoring",
			"name", cb.name,
		)
	}
}

// RecordFailure records a failed call against the breaker
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.lastFailure = cb.now()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.logger.Warn("Failure threshold reached, tripping circuit",
				"name", cb.name,
				"failures", cb.failures,
				"error", errString(err),
			)
			cb.setState(StateOpen)
		}

	case StateHalfOpen:
		// A single probe failure is strong evidence the dependency is
		// still down; reopen immediately.
		cb.logger.Warn("Probe failed in half-open state, reopening circuit",
			"name", cb.name,
			"error", errString(err),
		)
		cb.setState(StateOpen)

	case StateOpen:
		// No state change, the failure timestamp refresh above is enough.
	}
}

// Reset forces the breaker to the closed state and zeroes all counters.
// Intended for manual or administrative recovery only.
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state != StateClosed {
		cb.setState(StateClosed)
		return
	}
	cb.failures = 0
	cb.successes = 0
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// Name returns the name of the guarded dependency
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Stats returns a read-only snapshot for observability
func (cb *CircuitBreaker) Stats() BreakerStats {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return BreakerStats{
		Name:           cb.name,
		State:          cb.state,
		StateLabel:     cb.state.String(),
		Failures:       cb.failures,
		Successes:      cb.successes,
		LastFailure:    cb.lastFailure,
		TimeUntilRetry: cb.timeUntilRetryLocked(),
	}
}

// setState transitions the breaker and resets both counters. Callers must
// hold the mutex.
func (cb *CircuitBreaker) setState(state CircuitState) {
	if cb.state == state {
		return
	}

	prev := cb.state
	cb.state = state
	cb.failures = 0
	cb.successes = 0

	cb.logger.Info("Circuit breaker state changed",
		"name", cb.name,
		"from", prev.String(),
		"to", state.String(),
	)

	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, prev, state)
	}
}

// timeUntilRetryLocked returns how long until an open breaker will admit a
// probe. Callers must hold the mutex.
func (cb *CircuitBreaker) timeUntilRetryLocked() time.Duration {
	if cb.state != StateOpen {
		return 0
	}
	remaining := cb.resetTimeout - cb.now().Sub(cb.lastFailure)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
