// Package resilience protects an application from cascading failures when a
// remote backend is slow, unreachable, or returning errors. It combines a
// circuit breaker, a retry policy, and a connectivity gate behind a single
// execution wrapper.
//
// # Circuit Breaker
//
// The circuit breaker stops calling a dependency after repeated failures
// and lets limited probe traffic through once a reset timeout has elapsed.
//
//	cb := resilience.NewCircuitBreaker(resilience.BreakerConfig{
//		Name:             "booking-api",
//		FailureThreshold: 5,
//		ResetTimeout:     30 * time.Second,
//		SuccessThreshold: 2,
//	})
//
// # Retry Policies
//
// Policies are immutable values deciding whether and when to retry.
// ExponentialBackoff with jitter is the recommended default; the jitter
// prevents synchronized retry storms after a shared outage.
//
//	policy := resilience.ExponentialBackoff{
//		Retries:      3,
//		InitialDelay: time.Second,
//		MaxDelay:     30 * time.Second,
//	}
//
// # Connectivity Monitor
//
// The monitor keeps a live view of device reachability. An active probe
// validates general internet capability, so a wifi association with no
// internet still reports offline.
//
//	monitor := resilience.NewMonitor(resilience.DefaultMonitorConfig())
//	defer monitor.Close()
//
// # Executor
//
// The executor composes all three. The wrapped operation is never invoked
// when the device is offline or the circuit is open, and the final error is
// always a typed application error.
//
//	ex := resilience.NewExecutor(resilience.ExecutorConfig{
//		Breaker:      cb,
//		Connectivity: monitor,
//	})
//	result, err := ex.Execute(ctx, policy, "fetch-availability", func(ctx context.Context) (interface{}, error) {
//		return client.FetchAvailability(ctx)
//	})
//
// All components are safe for concurrent use. Breakers are plain
// constructed values intended to be dependency-injected from a composition
// root; a Registry is provided for sharing one breaker per dependency.
package resilience
