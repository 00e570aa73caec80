package ratelimit_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekeeper/pkg/ratelimit"
)

func TestDecision_RetryAfterSeconds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		decision ratelimit.Decision
		expected int
	}{
		{"allowed", ratelimit.Decision{Allowed: true, RetryAfter: time.Minute}, 0},
		{"whole seconds", ratelimit.Decision{Reason: ratelimit.ReasonRateLimited, RetryAfter: 50 * time.Second}, 50},
		{"rounds up", ratelimit.Decision{Reason: ratelimit.ReasonLocked, RetryAfter: 4*time.Minute + time.Millisecond}, 241},
		{"sub-second", ratelimit.Decision{Reason: ratelimit.ReasonRateLimited, RetryAfter: time.Nanosecond}, 1},
		{"negative floors at zero", ratelimit.Decision{Reason: ratelimit.ReasonRateLimited, RetryAfter: -time.Second}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.decision.RetryAfterSeconds())
		})
	}
}

func TestDecision_Err(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ratelimit.Decision{Allowed: true}.Err())

	err := ratelimit.Decision{Reason: ratelimit.ReasonLocked, RetryAfter: 90 * time.Second}.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ratelimit.ErrLocked))
	assert.False(t, errors.Is(err, ratelimit.ErrRateLimited))
	assert.Equal(t, "locked: retry after 90s", err.Error())

	err = ratelimit.Decision{Reason: ratelimit.ReasonUnavailable, RetryAfter: time.Second}.Err()
	assert.True(t, errors.Is(err, ratelimit.ErrStoreUnavailable))
	assert.False(t, errors.Is(err, ratelimit.ErrRateLimited))

	be, ok := ratelimit.AsBlocked(err)
	require.True(t, ok)
	assert.Equal(t, ratelimit.ReasonUnavailable, be.Reason)

	_, ok = ratelimit.AsBlocked(errors.New("other"))
	assert.False(t, ok)
}

func TestStatus_MostRestrictive(t *testing.T) {
	t.Parallel()

	_, ok := ratelimit.Status{}.MostRestrictive()
	assert.False(t, ok)

	minute := ratelimit.WindowStatus{Window: time.Minute, Limit: 60, Remaining: 10, ResetAt: epoch.Add(time.Minute)}
	hour := ratelimit.WindowStatus{Window: time.Hour, Limit: 1000, Remaining: 10, ResetAt: epoch.Add(time.Hour)}

	ws, ok := ratelimit.Status{minute, hour}.MostRestrictive()
	require.True(t, ok)
	assert.Equal(t, time.Hour, ws.Window, "ties go to the later reset")

	minute.Remaining = 3
	ws, _ = ratelimit.Status{minute, hour}.MostRestrictive()
	assert.Equal(t, time.Minute, ws.Window)

	assert.Equal(t, 0, ratelimit.Status{minute}.Used(time.Hour))
}
