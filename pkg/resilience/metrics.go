package resilience

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instrumentation for the resilience layer.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	StateTransitions    *prometheus.CounterVec
	CircuitState        *prometheus.GaugeVec
	AdmissionRejections *prometheus.CounterVec
	RetryAttempts       *prometheus.CounterVec
	AttemptDuration     *prometheus.HistogramVec
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Namespace string
	// Registerer defaults to prometheus.DefaultRegisterer
	Registerer prometheus.Registerer
}

// NewMetrics creates and registers the resilience metrics
func NewMetrics(config *MetricsConfig) *Metrics {
	if config == nil {
		config = &MetricsConfig{}
	}
	if config.Namespace == "" {
		config.Namespace = "resilience"
	}
	registerer := config.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		StateTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "circuit_state_transitions_total",
				Help:      "Total number of circuit breaker state transitions",
			},
			[]string{"name", "from", "to"},
		),
		CircuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Name:      "circuit_state",
				Help:      "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"name"},
		),
		AdmissionRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "admission_rejections_total",
				Help:      "Total number of executions rejected before the operation was invoked",
			},
			[]string{"name", "reason"},
		),
		RetryAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "attempts_total",
				Help:      "Total number of operation attempts by outcome",
			},
			[]string{"operation", "outcome"},
		),
		AttemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Name:      "attempt_duration_seconds",
				Help:      "Duration of individual operation attempts",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}

	registerer.MustRegister(
		m.StateTransitions,
		m.CircuitState,
		m.AdmissionRejections,
		m.RetryAttempts,
		m.AttemptDuration,
	)

	return m
}

// ObserveTransition records a circuit breaker state transition
func (m *Metrics) ObserveTransition(name string, from, to CircuitState) {
	if m == nil {
		return
	}
	m.StateTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
	m.CircuitState.WithLabelValues(name).Set(stateGaugeValue(to))
}

// ObserveRejection records an execution rejected before invoking the operation
func (m *Metrics) ObserveRejection(name, reason string) {
	if m == nil {
		return
	}
	m.AdmissionRejections.WithLabelValues(name, reason).Inc()
}

// ObserveAttempt records one operation attempt and its duration
func (m *Metrics) ObserveAttempt(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RetryAttempts.WithLabelValues(operation, outcome).Inc()
	m.AttemptDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// BindBreaker chains the metrics transition observer into a breaker config,
// preserving any OnStateChange hook already present
func (m *Metrics) BindBreaker(config BreakerConfig) BreakerConfig {
	if m == nil {
		return config
	}
	prev := config.OnStateChange
	config.OnStateChange = func(name string, from, to CircuitState) {
		m.ObserveTransition(name, from, to)
		if prev != nil {
			prev(name, from, to)
		}
	}
	return config
}

func stateGaugeValue(s CircuitState) float64 {
	switch s {
	case StateOpen:
		return 1
	case StateHalfOpen:
		return 2
	default:
		return 0
	}
}
