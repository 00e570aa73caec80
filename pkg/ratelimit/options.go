package ratelimit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/gatekeeper/pkg/logger"
)

// Option configures a Limiter, AuthLimiter or Sweeper.
type Option func(*options)

type options struct {
	clock    func() time.Time
	logger   *slog.Logger
	recorder Recorder
}

func defaultOptions() options {
	return options{
		clock:    time.Now,
		logger:   slog.New(slog.DiscardHandler),
		recorder: NoopRecorder{},
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock replaces time.Now. Nil is ignored.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder. Nil is ignored.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// outage logs store unavailability once per outage instead of once per request.
type outage struct {
	down atomic.Bool
}

// check returns true while the store is unavailable.
func (o *outage) check(ctx context.Context, store Store, namespace string, opts options) bool {
	if store.Available() {
		if o.down.CompareAndSwap(true, false) {
			opts.logger.InfoContext(ctx, "rate limit store recovered",
				logger.Component("ratelimit"),
				logger.Namespace(namespace),
			)
		}
		return false
	}
	if o.down.CompareAndSwap(false, true) {
		opts.logger.WarnContext(ctx, "rate limit store unavailable",
			logger.Component("ratelimit"),
			logger.Namespace(namespace),
		)
		opts.recorder.StoreUnavailable(namespace)
	}
	return true
}
