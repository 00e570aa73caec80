package mailauth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/gatekeeper/pkg/logger"
	"github.com/dmitrymomot/gatekeeper/pkg/ratelimit"
)

// Guard authenticates mail protocol logins behind the failure limiter.
type Guard struct {
	limiter  *ratelimit.AuthLimiter
	verifier Verifier
	logger   *slog.Logger
}

type Option func(*Guard)

// WithLogger sets a custom logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGuard creates a guard.
func NewGuard(limiter *ratelimit.AuthLimiter, verifier Verifier, opts ...Option) *Guard {
	g := &Guard{
		limiter:  limiter,
		verifier: verifier,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authenticate verifies account and password for protocol.
//
// A locked account gets a *ratelimit.BlockedError before its credentials are
// checked. Wrong credentials count as a failure and return
// ErrInvalidCredentials; a success forgets earlier failures.
func (g *Guard) Authenticate(ctx context.Context, protocol ratelimit.Protocol, account, password string) error {
	id := ratelimit.MailKey(protocol, account)

	if _, err := g.limiter.CheckAttempt(ctx, protocol, id); err != nil {
		return err
	}

	err := g.verifier.Verify(ctx, normalizeAccount(account), password)
	switch {
	case err == nil:
		if err := g.limiter.ClearAttempts(ctx, protocol, id); err != nil {
			g.logger.WarnContext(ctx, "failed to clear authentication attempts",
				logger.Component("mailauth"),
				logger.Protocol(string(protocol)),
				logger.Error(err),
			)
		}
		return nil

	case errors.Is(err, ErrInvalidCredentials):
		if err := g.limiter.RecordFailure(ctx, protocol, id); err != nil {
			return err
		}
		g.logger.InfoContext(ctx, "authentication failed",
			logger.Component("mailauth"),
			logger.Protocol(string(protocol)),
			logger.Identifier(id),
		)
		return ErrInvalidCredentials

	default:
		g.logger.ErrorContext(ctx, "credential verification failed",
			logger.Component("mailauth"),
			logger.Protocol(string(protocol)),
			logger.Error(err),
		)
		return errors.Join(ErrVerificationFailed, err)
	}
}
