package activation

import (
	"testing"
	"time"

	"github.com/corewave/dataflow/internal/graph"
	"github.com/stretchr/testify/assert"
)

const cbMethod graph.MethodID = 1

func TestCircuitBreakerAllowsByDefault(t *testing.T) {
	cb := NewCircuitBreaker()
	assert.True(t, cb.Allow(cbMethod))
	assert.Equal(t, CircuitClosed, cb.State(cbMethod))
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(3, time.Minute)
	cb.RecordFailure(cbMethod)
	cb.RecordFailure(cbMethod)
	assert.Equal(t, CircuitClosed, cb.State(cbMethod))
	assert.True(t, cb.Allow(cbMethod))

	cb.RecordFailure(cbMethod)
	assert.Equal(t, CircuitOpen, cb.State(cbMethod))
	assert.False(t, cb.Allow(cbMethod))
}

func TestCircuitBreakerRecordSuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(3, time.Minute)
	cb.RecordFailure(cbMethod)
	cb.RecordFailure(cbMethod)
	cb.RecordSuccess(cbMethod)
	cb.RecordFailure(cbMethod)
	cb.RecordFailure(cbMethod)
	assert.Equal(t, CircuitClosed, cb.State(cbMethod))
}

func TestCircuitBreakerHalfOpenAfterResetTimeout(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(1, 10*time.Millisecond)
	cb.RecordFailure(cbMethod)
	assert.Equal(t, CircuitOpen, cb.State(cbMethod))
	assert.False(t, cb.Allow(cbMethod))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, CircuitHalfOpen, cb.State(cbMethod))
	assert.True(t, cb.Allow(cbMethod))
}

func TestCircuitBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(1, 10*time.Millisecond)
	cb.RecordFailure(cbMethod)
	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.Allow(cbMethod))

	cb.RecordFailure(cbMethod)
	assert.Equal(t, CircuitOpen, cb.State(cbMethod))
	assert.False(t, cb.Allow(cbMethod))
}

func TestCircuitBreakerHalfOpenProbeSuccessCloses(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(1, 10*time.Millisecond)
	cb.RecordFailure(cbMethod)
	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.Allow(cbMethod))

	cb.RecordSuccess(cbMethod)
	assert.Equal(t, CircuitClosed, cb.State(cbMethod))
	assert.True(t, cb.Allow(cbMethod))
}

func TestCircuitBreakerResetClearsState(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(1, time.Minute)
	cb.RecordFailure(cbMethod)
	assert.Equal(t, CircuitOpen, cb.State(cbMethod))

	cb.Reset(cbMethod)
	assert.Equal(t, CircuitClosed, cb.State(cbMethod))
	assert.True(t, cb.Allow(cbMethod))
}

func TestCircuitBreakerTracksMethodsIndependently(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(1, time.Minute)
	const other graph.MethodID = 2

	cb.RecordFailure(cbMethod)
	assert.Equal(t, CircuitOpen, cb.State(cbMethod))
	assert.Equal(t, CircuitClosed, cb.State(other))
	assert.True(t, cb.Allow(other))
}

func TestNewCircuitBreakerWithConfigRejectsNonPositiveValues(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(0, -1)
	assert.Equal(t, DefaultFailureThreshold, cb.failureThreshold)
	assert.Equal(t, DefaultResetTimeout, cb.resetTimeout)
}
