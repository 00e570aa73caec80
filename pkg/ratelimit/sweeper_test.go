package ratelimit_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekeeper/pkg/ratelimit"
)

func TestSweeper_Sweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("bounds memory to recent identifiers", func(t *testing.T) {
		t.Parallel()
		spy := &spyRecorder{}
		l, table, clock := newLimiter(t, ratelimit.Policy{
			Name:    "sweep",
			Windows: []ratelimit.Window{{Duration: time.Minute, Max: 1}},
			Lockout: 5 * time.Minute,
		}, ratelimit.WithRecorder(spy))

		for i := range 1000 {
			id := fmt.Sprintf("ip:10.0.%d.%d", i/256, i%256)
			l.Record(ctx, id)
			l.Check(ctx, id)
		}
		counters, lockouts := table.Len()
		require.Equal(t, 1000, counters)
		require.Equal(t, 1000, lockouts)

		sweeper := l.Sweeper()

		// Inside the grace period counters survive; lockouts are still active.
		clock.Advance(90 * time.Second)
		assert.Equal(t, ratelimit.SweepResult{}, sweeper.Sweep(ctx))

		clock.Advance(4 * time.Minute)
		res := sweeper.Sweep(ctx)
		assert.Equal(t, ratelimit.SweepResult{Counters: 1000, Lockouts: 1000}, res)

		counters, lockouts = table.Len()
		assert.Zero(t, counters)
		assert.Zero(t, lockouts)
		assert.Equal(t, 1000, spy.counters)
		assert.Equal(t, 1000, spy.lockouts)
	})

	t.Run("keeps active entries", func(t *testing.T) {
		t.Parallel()
		l, table, clock := newLimiter(t, simplePolicy(time.Minute, 10))

		l.Record(ctx, "idle")
		clock.Advance(2*time.Minute + time.Second)
		l.Record(ctx, "active")

		res := l.Sweeper().Sweep(ctx)
		assert.Equal(t, 1, res.Counters)

		counters, _ := table.Len()
		assert.Equal(t, 1, counters)
		assert.Equal(t, 1, l.Status(ctx, "active").Used(time.Minute))
	})

	t.Run("unavailable store is a no-op", func(t *testing.T) {
		t.Parallel()
		spy := &spyRecorder{}
		sweeper := ratelimit.NewSweeper(nil, simplePolicy(time.Minute, 1), ratelimit.WithRecorder(spy))

		assert.Equal(t, ratelimit.SweepResult{}, sweeper.Sweep(ctx))
		assert.Equal(t, ratelimit.SweepResult{}, sweeper.Sweep(ctx))
		assert.Equal(t, 1, spy.unavailable)
	})

	t.Run("default interval", func(t *testing.T) {
		t.Parallel()
		sweeper := ratelimit.NewSweeper(nil, ratelimit.Policy{Name: "x"})
		assert.Equal(t, 5*time.Minute, sweeper.Interval())
	})
}

func TestSweeper_Run(t *testing.T) {
	t.Parallel()

	store := ratelimit.NewMemoryStore()
	table := store.Table("run")
	_, err := table.Increment(ratelimit.CounterKey{Identifier: "id", Window: time.Millisecond}, time.Now().Add(-time.Second))
	require.NoError(t, err)

	sweeper := ratelimit.NewSweeper(table, ratelimit.Policy{
		Name:            "run",
		CleanupInterval: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	require.Eventually(t, func() bool {
		counters, _ := table.Len()
		return counters == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
