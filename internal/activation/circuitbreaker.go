package activation

import (
	"errors"
	"sync"
	"time"

	"github.com/corewave/dataflow/internal/graph"
	"github.com/corewave/dataflow/internal/logging"
)

// CircuitState is the state of one method's circuit.
type CircuitState int

const (
	// CircuitClosed is the normal operating state — activations dispatch.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the method is failing fast: activations are
	// rejected without invoking the method body.
	CircuitOpen
	// CircuitHalfOpen allows a single probe activation to test recovery.
	CircuitHalfOpen
)

const (
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 30 * time.Second
)

// ErrCircuitOpen marks an activation rejected because its method has
// failed too many consecutive times in a row.
var ErrCircuitOpen = errors.New("activation: circuit open, method temporarily disabled")

// CircuitBreaker tracks consecutive failures per method and opens that
// method's circuit after DefaultFailureThreshold in a row, so a
// chronically failing async method stops being redispatched every plan
// while the rest of the component keeps solving (spec.md §4.D: method
// failure is per-variable, not fatal to the component).
type CircuitBreaker struct {
	mu               sync.Mutex
	circuits         map[graph.MethodID]*circuitState
	failureThreshold int
	resetTimeout     time.Duration
}

type circuitState struct {
	state           CircuitState
	failures        int
	lastFailure     time.Time
	lastStateChange time.Time
}

// NewCircuitBreaker creates a circuit breaker with default thresholds.
func NewCircuitBreaker() *CircuitBreaker {
	return NewCircuitBreakerWithConfig(DefaultFailureThreshold, DefaultResetTimeout)
}

// NewCircuitBreakerWithConfig creates a circuit breaker with custom
// thresholds; non-positive values fall back to the defaults.
func NewCircuitBreakerWithConfig(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	if resetTimeout <= 0 {
		resetTimeout = DefaultResetTimeout
	}
	return &CircuitBreaker{
		circuits:         make(map[graph.MethodID]*circuitState),
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
	}
}

// Allow reports whether an activation of method may proceed.
func (cb *CircuitBreaker) Allow(method graph.MethodID) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := cb.getOrCreate(method)
	switch c.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if time.Since(c.lastStateChange) >= cb.resetTimeout {
			c.state = CircuitHalfOpen
			c.lastStateChange = time.Now()
			return true
		}
		return false
	case CircuitHalfOpen:
		return false
	default:
		return true
	}
}

// RecordSuccess closes method's circuit and clears its failure count.
func (cb *CircuitBreaker) RecordSuccess(method graph.MethodID) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := cb.getOrCreate(method)
	c.failures = 0
	if c.state != CircuitClosed {
		c.state = CircuitClosed
		c.lastStateChange = time.Now()
	}
}

// RecordFailure counts a failure against method, opening its circuit
// once the threshold is reached (or immediately, if a half-open probe
// just failed).
func (cb *CircuitBreaker) RecordFailure(method graph.MethodID) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := cb.getOrCreate(method)
	c.failures++
	c.lastFailure = time.Now()

	switch c.state {
	case CircuitClosed:
		if c.failures >= cb.failureThreshold {
			c.state = CircuitOpen
			c.lastStateChange = time.Now()
			logging.Warn("circuit open for method %d after %d consecutive failures", method, c.failures)
		}
	case CircuitHalfOpen:
		c.state = CircuitOpen
		c.lastStateChange = time.Now()
		logging.Warn("circuit reopened for method %d: half-open probe failed", method)
	}
}

// State reports a method's current circuit state.
func (cb *CircuitBreaker) State(method graph.MethodID) CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c, ok := cb.circuits[method]
	if !ok {
		return CircuitClosed
	}
	if c.state == CircuitOpen && time.Since(c.lastStateChange) >= cb.resetTimeout {
		return CircuitHalfOpen
	}
	return c.state
}

// Reset clears method's circuit back to Closed.
func (cb *CircuitBreaker) Reset(method graph.MethodID) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	delete(cb.circuits, method)
}

func (cb *CircuitBreaker) getOrCreate(method graph.MethodID) *circuitState {
	if c, ok := cb.circuits[method]; ok {
		return c
	}
	c := &circuitState{state: CircuitClosed, lastStateChange: time.Now()}
	cb.circuits[method] = c
	return c
}
