package provider

import (
	"github.com/kbukum/voxkit/resilience"
)

// ResilienceConfig bundles optional resilience policies for a provider.
// Nil fields are skipped; a zero config is a plain passthrough.
type ResilienceConfig struct {
	// CircuitBreaker stops calls after repeated failures.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	// Retry retries retryable failures with exponential backoff.
	Retry *resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
	// Bulkhead caps concurrent calls, used for CPU-bound local engines.
	Bulkhead *resilience.BulkheadConfig `yaml:"bulkhead" mapstructure:"bulkhead"`
}

// IsEmpty returns true if no resilience policies are configured.
func (c ResilienceConfig) IsEmpty() bool {
	return c.CircuitBreaker == nil && c.Retry == nil && c.Bulkhead == nil
}

// ResilienceFromOptions reads the standard provider options:
//
//	retries: 2              # extra attempts after the first
//	breaker_failures: 5     # consecutive failures before the breaker opens
//	breaker_cooldown: 30s
//	max_concurrent: 1       # bulkhead size
func ResilienceFromOptions(id string, o Options) ResilienceConfig {
	var cfg ResilienceConfig
	if n := o.Int("retries", 0); n > 0 {
		rc := resilience.DefaultRetryConfig()
		rc.MaxAttempts = n + 1
		cfg.Retry = &rc
	}
	if n := o.Int("breaker_failures", 0); n > 0 {
		cb := resilience.DefaultCircuitBreakerConfig(id)
		cb.MaxFailures = n
		cb.Timeout = o.Duration("breaker_cooldown", cb.Timeout)
		cfg.CircuitBreaker = &cb
	}
	if n := o.Int("max_concurrent", 0); n > 0 {
		cfg.Bulkhead = &resilience.BulkheadConfig{
			Name:          id,
			MaxConcurrent: n,
			MaxWait:       o.Duration("max_wait", 0),
		}
	}
	return cfg
}

// ResilienceState holds initialized resilience primitives built from config.
type ResilienceState struct {
	id       string
	cb       *resilience.CircuitBreaker
	bh       *resilience.Bulkhead
	retryCfg *resilience.RetryConfig
}

// BuildResilience creates initialized resilience primitives from config.
// It returns nil for an empty config.
func BuildResilience(id string, cfg ResilienceConfig) *ResilienceState {
	if cfg.IsEmpty() {
		return nil
	}
	s := &ResilienceState{id: id, retryCfg: cfg.Retry}
	if cfg.CircuitBreaker != nil {
		s.cb = resilience.NewCircuitBreaker(*cfg.CircuitBreaker)
	}
	if cfg.Bulkhead != nil {
		s.bh = resilience.NewBulkhead(*cfg.Bulkhead)
	}
	return s
}

// BreakerState reports the circuit breaker state, or closed when none is configured.
func (s *ResilienceState) BreakerState() resilience.State {
	if s == nil || s.cb == nil {
		return resilience.StateClosed
	}
	return s.cb.State()
}
