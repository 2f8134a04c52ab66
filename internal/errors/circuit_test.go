package errors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb := NewCircuitBreaker("classifier")

	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	// Given: a breaker that trips after 3 failures
	cb := NewCircuitBreaker("classifier", WithMaxFailures(3))

	// When: recording 3 consecutive failures
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}

	// Then: circuit is open and requests are blocked
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("embedder", WithMaxFailures(3))

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 1, cb.Failures())
}

func TestCircuitBreaker_HalfOpenAfterResetTimeout(t *testing.T) {
	cb := NewCircuitBreaker("classifier",
		WithMaxFailures(1),
		WithResetTimeout(10*time.Millisecond))

	cb.RecordFailure()
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, StateHalfOpen, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_Execute_BlocksWhenOpen(t *testing.T) {
	cb := NewCircuitBreaker("classifier", WithMaxFailures(1))
	cb.RecordFailure()

	calls := 0
	err := cb.Execute(func() error {
		calls++
		return nil
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCircuitOpen))
	assert.Equal(t, 0, calls)
}

func TestCircuitBreaker_Execute_RecordsOutcome(t *testing.T) {
	cb := NewCircuitBreaker("embedder", WithMaxFailures(2))

	_ = cb.Execute(func() error { return errors.New("fail") })
	assert.Equal(t, 1, cb.Failures())

	_ = cb.Execute(func() error { return nil })
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreaker_HalfOpenProbeRecovers(t *testing.T) {
	cb := NewCircuitBreaker("classifier",
		WithMaxFailures(1),
		WithResetTimeout(5*time.Millisecond))

	cb.RecordFailure()
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	// A successful probe closes the circuit.
	err := cb.Execute(func() error { return nil })

	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("classifier",
		WithMaxFailures(1),
		WithResetTimeout(5*time.Millisecond))

	cb.RecordFailure()
	time.Sleep(10 * time.Millisecond)

	err := cb.Execute(func() error { return errors.New("still down") })

	require.Error(t, err)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitExecute_ReturnsValue(t *testing.T) {
	cb := NewCircuitBreaker("embedder")

	result, err := CircuitExecute(cb, func() ([]float32, error) {
		return []float32{0.1, 0.2}, nil
	})

	require.NoError(t, err)
	assert.Len(t, result, 2)
}
