package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(err error) func(ctx context.Context) error {
	return func(ctx context.Context) error { return err }
}

func TestCircuitOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})
	boom := eris.New("boom")

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), failing(boom))
	}
	assert.Equal(t, CircuitOpen, cb.State())

	err := cb.Execute(context.Background(), failing(nil))
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Minute})
	boom := eris.New("boom")

	_ = cb.Execute(context.Background(), failing(boom))
	_ = cb.Execute(context.Background(), failing(nil))
	_ = cb.Execute(context.Background(), failing(boom))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitHalfOpenProbe(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: 10 * time.Second})
	cb.nowFunc = func() time.Time { return now }

	_ = cb.Execute(context.Background(), failing(eris.New("boom")))
	assert.Equal(t, CircuitOpen, cb.State())

	// After the reset timeout a probe is allowed through.
	now = now.Add(11 * time.Second)
	assert.Equal(t, CircuitHalfOpen, cb.State())

	err := cb.Execute(context.Background(), failing(nil))
	require.NoError(t, err)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitFailedProbeReopens(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: 10 * time.Second})
	cb.nowFunc = func() time.Time { return now }

	_ = cb.Execute(context.Background(), failing(eris.New("boom")))
	now = now.Add(11 * time.Second)

	_ = cb.Execute(context.Background(), failing(eris.New("still down")))
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestCircuitShouldTripFilter(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		ShouldTrip:       IsTransient,
	})

	// Permanent errors pass through without tripping the breaker.
	_ = cb.Execute(context.Background(), failing(eris.New("bad request")))
	assert.Equal(t, CircuitClosed, cb.State())

	_ = cb.Execute(context.Background(), failing(NewTransientError(eris.New("503"), 503)))
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestCircuitOnStateChange(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = cb.Execute(context.Background(), failing(eris.New("boom")))
	cb.Reset()
	assert.Equal(t, []string{"closed->open", "open->closed"}, transitions)
}

func TestExecuteVal(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())
	v, err := ExecuteVal(context.Background(), cb, func(ctx context.Context) (string, error) {
		return "value", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "value", v)
}

func TestErrCircuitOpenIsNotTransient(t *testing.T) {
	assert.False(t, IsTransient(ErrCircuitOpen))
}
