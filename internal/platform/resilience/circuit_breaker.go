package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig is loaded from {PREFIX}_CIRCUIT_* env vars. Zero
// thresholds fall back to 5 failures, a 15s open window and 2 half-open
// probes.
type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxReq   int
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.FailureThreshold < 1 {
		c.FailureThreshold = 5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 15 * time.Second
	}
	if c.HalfOpenMaxReq < 1 {
		c.HalfOpenMaxReq = 2
	}
	return c
}

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// StateListener observes transitions. It runs with the breaker unlocked and
// must not block.
type StateListener func(name string, from, to CircuitState)

type Option func(*CircuitBreaker)

func WithClock(clock clockwork.Clock) Option {
	return func(b *CircuitBreaker) { b.clock = clock }
}

func WithStateListener(fn StateListener) Option {
	return func(b *CircuitBreaker) { b.listener = fn }
}

// CircuitBreaker guards one outbound dependency (job queue, broker, account
// service). A disabled breaker always allows.
type CircuitBreaker struct {
	name     string
	cfg      CircuitBreakerConfig
	clock    clockwork.Clock
	listener StateListener

	mu       sync.Mutex
	state    CircuitState
	failures int
	openedAt time.Time
	// probes counts half-open requests admitted and those that succeeded.
	probes, passed int
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig, opts ...Option) *CircuitBreaker {
	b := &CircuitBreaker{
		name:  name,
		cfg:   cfg.withDefaults(),
		clock: clockwork.NewRealClock(),
		state: CircuitStateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *CircuitBreaker) Name() string {
	return b.name
}

// Do runs fn when the breaker allows it. isFailure decides which errors count
// against the dependency; nil treats every error as a failure.
func (b *CircuitBreaker) Do(fn func() error, isFailure func(error) bool) error {
	if err := b.Allow(); err != nil {
		return fmt.Errorf("%s: %w", b.name, err)
	}

	err := fn()
	if err != nil && (isFailure == nil || isFailure(err)) {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return err
}

func (b *CircuitBreaker) Allow() error {
	if !b.cfg.Enabled {
		return nil
	}

	b.mu.Lock()
	from := b.state
	err := b.admitLocked()
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
	return err
}

func (b *CircuitBreaker) admitLocked() error {
	if b.state == CircuitStateOpen {
		if b.clock.Since(b.openedAt) < b.cfg.OpenTimeout {
			return ErrCircuitOpen
		}
		b.moveLocked(CircuitStateHalfOpen)
	}
	if b.state == CircuitStateHalfOpen {
		if b.probes >= b.cfg.HalfOpenMaxReq {
			return ErrCircuitOpen
		}
		b.probes++
	}
	return nil
}

func (b *CircuitBreaker) RecordSuccess() {
	b.record(func() {
		switch b.state {
		case CircuitStateClosed:
			b.failures = 0
		case CircuitStateHalfOpen:
			b.passed++
			if b.passed >= b.cfg.HalfOpenMaxReq {
				b.moveLocked(CircuitStateClosed)
			}
		}
	})
}

func (b *CircuitBreaker) RecordFailure() {
	b.record(func() {
		switch b.state {
		case CircuitStateClosed:
			b.failures++
			if b.failures >= b.cfg.FailureThreshold {
				b.moveLocked(CircuitStateOpen)
			}
		case CircuitStateHalfOpen:
			b.moveLocked(CircuitStateOpen)
		case CircuitStateOpen:
			b.openedAt = b.clock.Now()
		}
	})
}

func (b *CircuitBreaker) record(apply func()) {
	if !b.cfg.Enabled {
		return
	}

	b.mu.Lock()
	from := b.state
	apply()
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

// State reports half-open once the open window has elapsed, even before the
// next Allow performs the transition.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.clock.Since(b.openedAt) >= b.cfg.OpenTimeout {
		return CircuitStateHalfOpen
	}
	return b.state
}

func (b *CircuitBreaker) moveLocked(to CircuitState) {
	b.state = to
	b.probes, b.passed = 0, 0
	switch to {
	case CircuitStateOpen:
		b.openedAt = b.clock.Now()
	case CircuitStateClosed:
		b.failures = 0
		b.openedAt = time.Time{}
	}
}

func (b *CircuitBreaker) notify(from, to CircuitState) {
	if from != to && b.listener != nil {
		b.listener(b.name, from, to)
	}
}
