package resilience

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fleetbook/resilience/pkg/errors"
	"github.com/fleetbook/resilience/pkg/logging"
)

// Operation is an arbitrary unit of work supplied by the caller. It should
// enforce its own timeout; the executor deliberately does not impose one,
// because only the caller knows what a sane deadline is.
type Operation func(ctx context.Context) (interface{}, error)

// ExecutorConfig holds the collaborators of an Executor
type ExecutorConfig struct {
	// Breaker guards the dependency this executor talks to. Required.
	Breaker *CircuitBreaker
	// Connectivity supplies the instantaneous online check. Required.
	Connectivity Checker
	// OnRetry is called before each retry sleep
	OnRetry func(operationName string, attempt int, err error, delay time.Duration)
	// Metrics is optional instrumentation
	Metrics *Metrics
}

// Executor is the single entry point callers use to run an operation under
// connectivity gating, circuit breaking and a retry policy. Each execution
// is logically independent, but every attempt outcome feeds back into the
// shared breaker, so behavior is stateful across calls.
type Executor struct {
	breaker      *CircuitBreaker
	connectivity Checker
	onRetry      func(operationName string, attempt int, err error, delay time.Duration)
	metrics      *Metrics
	logger       *logging.Logger
}

// NewExecutor creates an executor for one guarded dependency
func NewExecutor(config ExecutorConfig) *Executor {
	return &Executor{
		breaker:      config.Breaker,
		connectivity: config.Connectivity,
		onRetry:      config.OnRetry,
		metrics:      config.Metrics,
		logger:       logging.GetLogger(),
	}
}

// Execute runs the operation under the given retry policy. The wrapped
// operation is never invoked when the device is offline or the circuit is
// open. The final error is always a typed *errors.AppError.
func (e *Executor) Execute(ctx context.Context, policy Policy, operationName string, op Operation) (interface{}, error) {
	executionID := uuid.New().String()
	ctx = logging.WithExecutionID(ctx, executionID)
	log := e.logger.WithContext(ctx).WithField("operation", operationName)

	if !e.connectivity.Online() {
		log.Debug("Execution rejected, device is offline")
		e.metrics.ObserveRejection(e.breaker.Name(), "offline")
		return nil, errors.NewNoConnectivityError()
	}

	if !e.breaker.AllowRequest() {
		stats := e.breaker.Stats()
		log.WithField("time_until_retry", stats.TimeUntilRetry.String()).
			Debug("Execution rejected, circuit is open")
		e.metrics.ObserveRejection(e.breaker.Name(), "circuit_open")
		return nil, errors.NewServiceUnavailableError(e.breaker.Name(), stats.TimeUntilRetry)
	}

	maxRetries := policy.MaxRetries()
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := policy.DelayFor(attempt - 1)

			if e.onRetry != nil {
				e.onRetry(operationName, attempt, lastErr, delay)
			}
			log.WithField("attempt", attempt).
				WithField("delay", delay.String()).
				Debug("Retrying operation")

			select {
			case <-ctx.Done():
				return nil, errors.NewCanceledError(operationName).WithCause(ctx.Err())
			case <-time.After(delay):
			}

			// A concurrent caller's probe may have reopened the circuit
			// while we slept; abort instead of piling onto a known-bad
			// dependency.
			if !e.breaker.AllowRequest() {
				stats := e.breaker.Stats()
				log.WithField("attempt", attempt).
					Warn("Circuit opened mid-retry, aborting")
				e.metrics.ObserveRejection(e.breaker.Name(), "circuit_open")
				return nil, errors.NewServiceUnavailableError(e.breaker.Name(), stats.TimeUntilRetry)
			}
		}

		start := time.Now()
		result, err := op(ctx)
		duration := time.Since(start)

		if err == nil {
			e.breaker.RecordSuccess()
			e.metrics.ObserveAttempt(operationName, "success", duration)
			if attempt > 0 {
				log.WithField("attempt", attempt).Info("Operation succeeded after retry")
			}
			return result, nil
		}

		classified := errors.Classify(err)

		// Cancellation propagates unchanged and untallied; it says nothing
		// about the dependency's health.
		if classified.Type == errors.ErrorTypeCanceled {
			log.Debug("Operation canceled")
			return nil, classified
		}

		e.breaker.RecordFailure(err)
		e.metrics.ObserveAttempt(operationName, "failure", duration)
		lastErr = err

		if attempt < maxRetries && policy.IsRetryable(err) {
			continue
		}
		break
	}

	final := errors.Classify(lastErr)
	log.WithField("error", final.Error()).
		WithField("error_type", string(final.Type)).
		Warn("Operation failed")
	return nil, final
}

// ExecuteOnce runs the operation with no retries. Intended for
// non-idempotent writes such as creating a booking, where a blind retry
// could duplicate the effect.
func (e *Executor) ExecuteOnce(ctx context.Context, operationName string, op Operation) (interface{}, error) {
	return e.Execute(ctx, NoRetry{}, operationName, op)
}

// ExecuteWithAggressiveRetry runs the operation with the aggressive preset.
// Intended for idempotent reads that must feel instantaneous.
func (e *Executor) ExecuteWithAggressiveRetry(ctx context.Context, operationName string, op Operation) (interface{}, error) {
	return e.Execute(ctx, AggressivePolicy(), operationName, op)
}

// CircuitBreakerStats returns a snapshot of the guarding breaker
func (e *Executor) CircuitBreakerStats() BreakerStats {
	return e.breaker.Stats()
}

// ResetCircuitBreaker forces the guarding breaker closed
func (e *Executor) ResetCircuitBreaker() {
	e.breaker.Reset()
}

// ExecuteTyped is a generic convenience wrapper around Executor.Execute for
// callers that want a concrete result type
func ExecuteTyped[T any](ctx context.Context, e *Executor, policy Policy, operationName string, op func(ctx context.Context) (T, error)) (T, error) {
	result, err := e.Execute(ctx, policy, operationName, func(ctx context.Context) (interface{}, error) {
		return op(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}
