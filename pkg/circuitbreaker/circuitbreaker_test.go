package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("connection refused")

func fail(context.Context) error { return errDown }
func ok(context.Context) error   { return nil }

// testBreaker returns a breaker driven by a manual clock.
func testBreaker(opts ...Option) (*CircuitBreaker, *time.Time) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := New("test", opts...)
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	var transitions []string
	cb, _ := testBreaker(WithFailureThreshold(2), WithOnStateChange(func(_ string, from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}))
	ctx := context.Background()

	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, IsRejected(err))
	assert.False(t, called)

	assert.Equal(t, []string{"closed->open"}, transitions)
	assert.Equal(t, 1, cb.Counts().Rejected)
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	cb, now := testBreaker(WithFailureThreshold(1), WithTimeout(time.Minute))
	ctx := context.Background()

	require.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	require.Equal(t, StateOpen, cb.State())

	*now = now.Add(30 * time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, ok), ErrCircuitOpen)

	*now = now.Add(31 * time.Second)
	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, now := testBreaker(WithFailureThreshold(1), WithTimeout(time.Second))
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, fail))
	*now = now.Add(time.Second)

	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, ok), ErrCircuitOpen)
}

func TestBreaker_HalfOpenLimitsProbes(t *testing.T) {
	cb, now := testBreaker(WithFailureThreshold(1), WithTimeout(time.Second))
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, fail))
	*now = now.Add(time.Second)

	err := cb.Execute(ctx, func(ctx context.Context) error {
		// a second caller while the probe is in flight
		assert.ErrorIs(t, cb.Execute(ctx, ok), ErrTooManyRequests)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_IsFailure(t *testing.T) {
	errBadRow := errors.New("bad row")
	cb, _ := testBreaker(WithFailureThreshold(1), WithIsFailure(func(err error) bool {
		return !errors.Is(err, errBadRow)
	}))
	ctx := context.Background()

	assert.ErrorIs(t, cb.Execute(ctx, func(context.Context) error { return errBadRow }), errBadRow)
	assert.Equal(t, StateClosed, cb.State())

	assert.ErrorIs(t, cb.Execute(ctx, func(context.Context) error { return context.Canceled }), context.Canceled)
	assert.Equal(t, StateOpen, cb.State(), "a custom classifier replaces the default")
}

func TestBreaker_CancellationIsNotAFailure(t *testing.T) {
	cb, _ := testBreaker(WithFailureThreshold(1))

	err := cb.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_Reset(t *testing.T) {
	cb, _ := testBreaker(WithFailureThreshold(1))
	require.Error(t, cb.Execute(context.Background(), fail))
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, Counts{}, cb.Counts())
	assert.Equal(t, "test", cb.Name())
}
