// Package resilience holds the fault-tolerance helpers used around optional
// backends: a circuit breaker, retry with backoff and a bounded-call wrapper.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig controls when the breaker trips and how it probes for
// recovery. OnStateChange runs with the breaker lock held and must not call
// back into the breaker.
type CircuitBreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
	OnStateChange       func(name string, to State)
}

// CircuitBreaker opens after FailureThreshold consecutive failures, rejects
// calls for ResetTimeout, then lets HalfOpenMaxRequests probes through.
// Results are attributed to the generation they started in, so a slow call
// finishing after a transition cannot flip the new state.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	state      State
	generation uint64
	failures   int
	inFlight   int
	openedAt   time.Time
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
		now:    time.Now,
	}
}

// Execute runs fn unless the breaker is rejecting calls, and records the
// outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	gen, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.record(gen, err == nil)
	return err
}

func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.current()
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Reset closes the breaker and clears its failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
	cb.logger.Info("circuit manually reset")
}

// current promotes an open breaker whose cool-down elapsed to half-open.
// Callers hold mu.
func (cb *CircuitBreaker) current() State {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		cb.transition(StateHalfOpen)
		cb.logger.Info("circuit half-open, probing", "after", cb.cfg.ResetTimeout)
	}
	return cb.state
}

func (cb *CircuitBreaker) admit() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.current() {
	case StateOpen:
		wait := cb.cfg.ResetTimeout - cb.now().Sub(cb.openedAt)
		return 0, fmt.Errorf("%w: %s (retry in %v)", ErrCircuitOpen, cb.name, wait.Round(time.Millisecond))
	case StateHalfOpen:
		if cb.inFlight >= cb.cfg.HalfOpenMaxRequests {
			return 0, fmt.Errorf("%w: %s (probe in progress)", ErrCircuitOpen, cb.name)
		}
	}
	cb.inFlight++
	return cb.generation, nil
}

func (cb *CircuitBreaker) record(gen uint64, ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if gen != cb.generation {
		return
	}
	cb.inFlight--

	if ok {
		if cb.state == StateHalfOpen {
			cb.transition(StateClosed)
			cb.logger.Info("circuit closed, backend recovered")
			return
		}
		cb.failures = 0
		return
	}

	cb.failures++
	switch {
	case cb.state == StateHalfOpen:
		cb.transition(StateOpen)
		cb.logger.Warn("circuit re-opened, probe failed")
	case cb.failures >= cb.cfg.FailureThreshold:
		failures := cb.failures
		cb.transition(StateOpen)
		cb.logger.Warn("circuit opened", "consecutive_failures", failures, "threshold", cb.cfg.FailureThreshold)
	}
}

// transition starts a new generation in state to. Callers hold mu.
func (cb *CircuitBreaker) transition(to State) {
	cb.state = to
	cb.generation++
	cb.failures = 0
	cb.inFlight = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, to)
	}
}
