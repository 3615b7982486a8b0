package resilience

import "sync"

// Registry manages one circuit breaker per logical dependency so that all
// concurrent calls against the same backend share breaker state. It is safe
// for concurrent use.
type Registry struct {
	mutex      sync.RWMutex
	breakers   map[string]*CircuitBreaker
	defaultCfg BreakerConfig
}

// NewRegistry creates a Registry that uses defaultCfg for breakers created
// via Get. The Name field of defaultCfg is ignored.
func NewRegistry(defaultCfg BreakerConfig) *Registry {
	return &Registry{
		breakers:   make(map[string]*CircuitBreaker),
		defaultCfg: defaultCfg,
	}
}

// Get returns the breaker registered under name, creating one with the
// default config if it does not exist
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mutex.RLock()
	cb, ok := r.breakers[name]
	r.mutex.RUnlock()
	if ok {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check after acquiring the write lock.
	if cb, ok = r.breakers[name]; ok {
		return cb
	}

	cfg := r.defaultCfg
	cfg.Name = name
	cb = NewCircuitBreaker(cfg)
	r.breakers[name] = cb
	return cb
}

// GetWithConfig returns the breaker registered under name, creating one
// with cfg if it does not exist. If the breaker already exists, the
// existing instance is returned and cfg is ignored.
func (r *Registry) GetWithConfig(name string, cfg BreakerConfig) *CircuitBreaker {
	r.mutex.RLock()
	cb, ok := r.breakers[name]
	r.mutex.RUnlock()
	if ok {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if cb, ok = r.breakers[name]; ok {
		return cb
	}

	cfg.Name = name
	cb = NewCircuitBreaker(cfg)
	r.breakers[name] = cb
	return cb
}

// Lookup returns the breaker registered under name without creating one
func (r *Registry) Lookup(name string) (*CircuitBreaker, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	cb, ok := r.breakers[name]
	return cb, ok
}

// All returns a snapshot of all registered breakers keyed by name
func (r *Registry) All() map[string]*CircuitBreaker {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make(map[string]*CircuitBreaker, len(r.breakers))
	for name, cb := range r.breakers {
		out[name] = cb
	}
	return out
}

// Stats returns snapshots for all registered breakers
func (r *Registry) Stats() []BreakerStats {
	all := r.All()
	stats := make([]BreakerStats, 0, len(all))
	for _, cb := range all {
		stats = append(stats, cb.Stats())
	}
	return stats
}
