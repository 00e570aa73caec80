package ratelimit

import (
	"context"
	"time"

	"github.com/dmitrymomot/gatekeeper/pkg/logger"
)

// Limiter is the fixed-window engine of one consumer.
//
// Callers follow a check-then-record protocol: Check, and only when it allows,
// do the work and Record. The pair is not atomic, so concurrent requests for
// the same identifier may overshoot a window by the number in flight.
type Limiter struct {
	store   Store
	policy  Policy
	lockout lockoutTracker
	opts    options
	outage  outage
	rawOpts []Option
}

// New creates a limiter for policy backed by store.
// A nil store is accepted and treated as unavailable, so decisions follow policy.FailMode.
func New(store Store, policy Policy, opts ...Option) (*Limiter, error) {
	p, err := policy.Validate()
	if err != nil {
		return nil, err
	}
	if store == nil {
		store = (*Table)(nil)
	}

	return &Limiter{
		store:   store,
		policy:  p,
		lockout: lockoutTracker{store: store, duration: p.Lockout},
		opts:    buildOptions(opts),
		rawOpts: opts,
	}, nil
}

// Policy returns the validated policy.
func (l *Limiter) Policy() Policy {
	return l.policy
}

// Check decides whether identifier may proceed. It does not count the attempt.
//
// Check has one side effect: when a window is exceeded and the policy has a
// lockout, it installs the lockout before answering. A status probe can
// therefore lock an identifier out.
func (l *Limiter) Check(ctx context.Context, identifier string) Decision {
	d := l.check(ctx, identifier)
	l.opts.recorder.Decision(l.policy.Name, d)
	if !d.Allowed {
		l.opts.logger.DebugContext(ctx, "rate limit blocked",
			logger.Component("ratelimit"),
			logger.Namespace(l.policy.Name),
			logger.Identifier(identifier),
			logger.Reason(string(d.Reason)),
			logger.RetryAfter(d.RetryAfter),
		)
	}
	return d
}

func (l *Limiter) check(ctx context.Context, identifier string) Decision {
	if l.outage.check(ctx, l.store, l.policy.Name, l.opts) {
		return l.degraded()
	}

	now := l.opts.clock()
	if left, ok := l.lockout.active(identifier, now); ok {
		return blocked(ReasonLocked, left)
	}

	for _, w := range l.policy.Windows {
		count, start := l.current(identifier, w, now)
		if w.Max > 0 && count < int64(w.Max) {
			continue
		}

		if l.policy.HasLockout() {
			left, err := l.lockout.engage(identifier, now)
			if err != nil {
				return l.degraded()
			}
			l.opts.logger.InfoContext(ctx, "rate limit lockout engaged",
				logger.Component("ratelimit"),
				logger.Namespace(l.policy.Name),
				logger.Identifier(identifier),
				logger.RetryAfter(left),
			)
			return blocked(ReasonLocked, left)
		}
		return blocked(ReasonRateLimited, start.Add(w.Duration).Sub(now))
	}

	return allowed()
}

// current returns the count and start of the live window, reading a rotated
// window as empty without mutating the store.
func (l *Limiter) current(identifier string, w Window, now time.Time) (int64, time.Time) {
	e, ok := l.store.Read(CounterKey{Identifier: identifier, Window: w.Duration})
	if !ok || e.stale(now, w.Duration) {
		return 0, now
	}
	return e.Count, e.WindowStart
}

func (l *Limiter) degraded() Decision {
	if l.policy.FailMode == FailClosed {
		return blocked(ReasonUnavailable, l.policy.UnavailableRetry)
	}
	return allowed()
}

// Record counts one attempt in every window. Call it only after Check allowed.
// Store unavailability is logged once and otherwise ignored.
func (l *Limiter) Record(ctx context.Context, identifier string) {
	now := l.opts.clock()
	for _, w := range l.policy.Windows {
		if _, err := l.store.Increment(CounterKey{Identifier: identifier, Window: w.Duration}, now); err != nil {
			l.outage.check(ctx, l.store, l.policy.Name, l.opts)
			return
		}
	}
}

// Allow is Check followed by Record when allowed.
func (l *Limiter) Allow(ctx context.Context, identifier string) Decision {
	d := l.Check(ctx, identifier)
	if d.Allowed {
		l.Record(ctx, identifier)
	}
	return d
}

// Status reports usage per window for rate limit headers.
func (l *Limiter) Status(ctx context.Context, identifier string) Status {
	now := l.opts.clock()
	status := make(Status, 0, len(l.policy.Windows))
	for _, w := range l.policy.Windows {
		count, start := l.current(identifier, w, now)
		used := int(count)
		status = append(status, WindowStatus{
			Window:    w.Duration,
			Limit:     w.Max,
			Used:      used,
			Remaining: max(0, w.Max-used),
			ResetAt:   start.Add(w.Duration),
		})
	}
	return status
}

// Locked returns the time left on an active lockout.
func (l *Limiter) Locked(ctx context.Context, identifier string) (time.Duration, bool) {
	return l.lockout.active(identifier, l.opts.clock())
}

// Clear removes every counter and the lockout of identifier.
func (l *Limiter) Clear(ctx context.Context, identifier string) error {
	for _, w := range l.policy.Windows {
		if err := l.store.Delete(CounterKey{Identifier: identifier, Window: w.Duration}); err != nil {
			return err
		}
	}
	if err := l.lockout.release(identifier); err != nil {
		return err
	}

	l.opts.logger.InfoContext(ctx, "rate limit cleared",
		logger.Component("ratelimit"),
		logger.Namespace(l.policy.Name),
		logger.Identifier(identifier),
	)
	return nil
}

// Sweeper returns a cleanup sweeper for this limiter's namespace.
// It inherits the limiter's clock, logger and recorder; opts are applied on top.
func (l *Limiter) Sweeper(opts ...Option) *Sweeper {
	return NewSweeper(l.store, l.policy, append(append([]Option{}, l.rawOpts...), opts...)...)
}
