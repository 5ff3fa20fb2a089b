package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when a call is rejected because the circuit is open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// CircuitBreakerConfig controls circuit breaker behavior.
type CircuitBreakerConfig struct {
	// Name identifies the guarded service in logs.
	Name string

	// FailureThreshold is the number of consecutive failures within Window
	// that opens the circuit. Default: 3.
	FailureThreshold int

	// Window resets the failure count when failures are further apart than
	// this. Default: 30s.
	Window time.Duration

	// Cooldown is how long the circuit stays open. Default: 60s.
	Cooldown time.Duration
}

// DefaultCircuitBreakerConfig returns the breaker used for page extraction:
// 3 failures within 30s open the circuit for 60s.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 3,
		Window:           30 * time.Second,
		Cooldown:         60 * time.Second,
	}
}

// CircuitBreaker skips a flaky upstream after repeated failures so callers
// can move on to a fallback immediately.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	openUntil   time.Time

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewCircuitBreaker creates a circuit breaker with the given config.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Window <= 0 {
		cfg.Window = 30 * time.Second
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 60 * time.Second
	}
	return &CircuitBreaker{cfg: cfg, nowFunc: time.Now}
}

// Open reports whether calls are currently being rejected.
func (cb *CircuitBreaker) Open() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.nowFunc().Before(cb.openUntil)
}

// Record updates the breaker with the outcome of a call.
func (cb *CircuitBreaker) Record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.failures = 0
		return
	}

	now := cb.nowFunc()
	if now.Sub(cb.lastFailure) > cb.cfg.Window {
		cb.failures = 0
	}
	cb.failures++
	cb.lastFailure = now

	if cb.failures >= cb.cfg.FailureThreshold {
		cb.openUntil = now.Add(cb.cfg.Cooldown)
		cb.failures = 0
		zap.L().Warn("circuit breaker opened",
			zap.String("service", cb.cfg.Name),
			zap.Duration("cooldown", cb.cfg.Cooldown),
		)
	}
}

// ExecuteVal runs fn unless the circuit is open, recording its outcome.
func ExecuteVal[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if cb.Open() {
		return zero, eris.Wrapf(ErrCircuitOpen, "%s", cb.cfg.Name)
	}
	val, err := fn(ctx)
	cb.Record(err)
	return val, err
}
