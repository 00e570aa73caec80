package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/gatekeeper/pkg/logger"
)

// SweepResult counts the entries one pass evicted.
type SweepResult struct {
	Counters int
	Lockouts int
}

// Sweeper periodically evicts counters past twice their window and lockouts
// past their deadline, bounding memory to the identifiers seen recently.
// A counter survives one extra window so a sweep never races a live window.
type Sweeper struct {
	store     Store
	namespace string
	interval  time.Duration
	opts      options
	outage    outage
}

// NewSweeper creates a sweeper for the namespace of policy.
// A zero CleanupInterval uses the 5 minute default.
func NewSweeper(store Store, policy Policy, opts ...Option) *Sweeper {
	if store == nil {
		store = (*Table)(nil)
	}
	interval := policy.CleanupInterval
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	return &Sweeper{
		store:     store,
		namespace: policy.Name,
		interval:  interval,
		opts:      buildOptions(opts),
	}
}

// Interval returns the time between passes.
func (s *Sweeper) Interval() time.Duration {
	return s.interval
}

// Sweep runs one pass. Entries refreshed between scan and eviction are kept.
func (s *Sweeper) Sweep(ctx context.Context) SweepResult {
	var res SweepResult
	if s.outage.check(ctx, s.store, s.namespace, s.opts) {
		return res
	}

	now := s.opts.clock()
	expired := s.store.ScanExpired(now)
	for _, key := range expired.Counters {
		if ctx.Err() != nil {
			break
		}
		if s.store.EvictCounter(key, now) {
			res.Counters++
		}
	}
	for _, id := range expired.Lockouts {
		if ctx.Err() != nil {
			break
		}
		if s.store.EvictLockout(id, now) {
			res.Lockouts++
		}
	}

	if res.Counters > 0 || res.Lockouts > 0 {
		s.opts.recorder.Evicted(s.namespace, res.Counters, res.Lockouts)
		s.opts.logger.DebugContext(ctx, "rate limit sweep",
			logger.Component("ratelimit"),
			logger.Namespace(s.namespace),
			logger.Evicted(res.Counters, res.Lockouts),
		)
	}
	return res
}

// Run sweeps every interval until ctx is done. A failing pass is logged and
// the next tick proceeds normally.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.safeSweep(ctx)
		}
	}
}

func (s *Sweeper) safeSweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.opts.logger.ErrorContext(ctx, "rate limit sweep panicked",
				logger.Component("ratelimit"),
				logger.Namespace(s.namespace),
				logger.Error(fmt.Errorf("panic: %v", r)),
			)
		}
	}()
	s.Sweep(ctx)
}
