package ratelimit_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekeeper/pkg/ratelimit"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recorded struct {
	namespace string
	decision  ratelimit.Decision
}

type spyRecorder struct {
	mu          sync.Mutex
	decisions   []recorded
	counters    int
	lockouts    int
	unavailable int
}

func (s *spyRecorder) Decision(namespace string, d ratelimit.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, recorded{namespace: namespace, decision: d})
}

func (s *spyRecorder) Evicted(_ string, counters, lockouts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters += counters
	s.lockouts += lockouts
}

func (s *spyRecorder) StoreUnavailable(string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable++
}

func newLimiter(t *testing.T, policy ratelimit.Policy, opts ...ratelimit.Option) (*ratelimit.Limiter, *ratelimit.Table, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	table := ratelimit.NewMemoryStore().Table(policy.Name)
	l, err := ratelimit.New(table, policy, append([]ratelimit.Option{ratelimit.WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)
	return l, table, clock
}

func simplePolicy(window time.Duration, limit int) ratelimit.Policy {
	return ratelimit.Policy{
		Name:    "test",
		Windows: []ratelimit.Window{{Duration: window, Max: limit}},
	}
}
