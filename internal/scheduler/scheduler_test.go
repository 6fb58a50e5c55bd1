package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNonPositiveInterval(t *testing.T) {
	_, err := New(Options{}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestRunStopsAfterMaxTicks(t *testing.T) {
	s, err := New(Options{Interval: 5 * time.Millisecond, RunImmediately: true, MaxTicks: 3}, zerolog.Nop())
	require.NoError(t, err)

	calls := 0
	err = s.Run(context.Background(), func(context.Context, time.Time) error {
		calls++
		if calls == 2 {
			return errors.New("tick errors do not stop the loop")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRunHonoursCancellation(t *testing.T) {
	s, err := New(Options{Interval: time.Hour, StartupDelay: time.Millisecond}, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = s.Run(ctx, func(context.Context, time.Time) error {
		t.Fatal("tick must not fire before the interval")
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNextTickAlignment(t *testing.T) {
	s, err := New(Options{Interval: 5 * time.Minute, AlignToStart: true}, zerolog.Nop())
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 10, 7, 30, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 10, 0, 0, time.UTC), s.nextTick(now))
	assert.Equal(t, time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC), s.tickStart(now))

	onBoundary := time.Date(2024, 1, 1, 10, 10, 0, 0, time.UTC)
	assert.Equal(t, onBoundary.Add(5*time.Minute), s.nextTick(onBoundary))
}
