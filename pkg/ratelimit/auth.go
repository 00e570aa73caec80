package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrymomot/gatekeeper/pkg/logger"
)

// Protocol is a mail protocol whose authentication attempts are limited.
type Protocol string

const (
	ProtocolSMTP Protocol = "smtp"
	ProtocolIMAP Protocol = "imap"
	ProtocolPOP3 Protocol = "pop3"
)

// Protocols lists the supported protocols.
func Protocols() []Protocol {
	return []Protocol{ProtocolSMTP, ProtocolIMAP, ProtocolPOP3}
}

// ParseProtocol converts a case-insensitive name into a Protocol.
func ParseProtocol(s string) (Protocol, error) {
	p := Protocol(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case ProtocolSMTP, ProtocolIMAP, ProtocolPOP3:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProtocol, s)
	}
}

const (
	defaultAuthNamespace = "auth"
	defaultAuthThreshold = 6
	defaultAuthTTL       = 15 * time.Minute
)

// AuthPolicy configures failure-threshold lockouts for mail authentication.
type AuthPolicy struct {
	// Name prefixes the per-protocol namespaces ("auth" gives "auth:smtp").
	Name string
	// Threshold is the number of failures that triggers a lockout. Defaults to 6.
	Threshold int
	// TTL is both the failure counting window and the lockout length. Defaults to 15 minutes.
	TTL time.Duration
	// CleanupInterval is the sweeper tick. Defaults to 5 minutes.
	CleanupInterval time.Duration
	// FailMode defaults to FailClosed: an unavailable store must not open authentication.
	FailMode FailMode
	// UnavailableRetry is the retry hint reported when failing closed. Defaults to 1 second.
	UnavailableRetry time.Duration
}

// Validate checks the policy and fills defaults into a copy.
func (p AuthPolicy) Validate() (AuthPolicy, error) {
	if p.Threshold < 0 {
		return p, fmt.Errorf("%w: auth threshold must not be negative, got %d", ErrInvalidPolicy, p.Threshold)
	}
	if p.TTL < 0 {
		return p, fmt.Errorf("%w: auth ttl must not be negative, got %v", ErrInvalidPolicy, p.TTL)
	}
	if p.CleanupInterval < 0 {
		return p, fmt.Errorf("%w: auth cleanup interval must not be negative, got %v", ErrInvalidPolicy, p.CleanupInterval)
	}

	out := p
	if strings.TrimSpace(out.Name) == "" {
		out.Name = defaultAuthNamespace
	}
	if out.Threshold == 0 {
		out.Threshold = defaultAuthThreshold
	}
	if out.TTL == 0 {
		out.TTL = defaultAuthTTL
	}
	if out.CleanupInterval == 0 {
		out.CleanupInterval = defaultCleanupInterval
	}
	if out.FailMode == "" {
		out.FailMode = FailClosed
	}
	mode, err := ParseFailMode(string(out.FailMode))
	if err != nil {
		return p, err
	}
	out.FailMode = mode
	if out.UnavailableRetry <= 0 {
		out.UnavailableRetry = defaultUnavailableRetry
	}
	return out, nil
}

// Namespace returns the table namespace of protocol.
func (p AuthPolicy) Namespace(protocol Protocol) string {
	return p.Name + ":" + string(protocol)
}

// Attempt is the answer to an allowed authentication attempt.
type Attempt struct {
	// Remaining is the number of failures left before lockout.
	Remaining int
}

type authTable struct {
	namespace string
	store     Store
	lockout   lockoutTracker
	outage    outage
}

// AuthLimiter limits failed authentications per protocol and identifier.
// Protocols never share counters or lockouts: each one owns a table.
type AuthLimiter struct {
	policy  AuthPolicy
	tables  map[Protocol]*authTable
	opts    options
	rawOpts []Option
}

// NewAuthLimiter creates one table per protocol through tables.
// A nil tables func, or a nil Store it returns, is treated as unavailable.
func NewAuthLimiter(tables TableFunc, policy AuthPolicy, opts ...Option) (*AuthLimiter, error) {
	p, err := policy.Validate()
	if err != nil {
		return nil, err
	}

	byProto := make(map[Protocol]*authTable, len(Protocols()))
	for _, proto := range Protocols() {
		ns := p.Namespace(proto)
		var st Store = (*Table)(nil)
		if tables != nil {
			if s := tables(ns); s != nil {
				st = s
			}
		}
		byProto[proto] = &authTable{
			namespace: ns,
			store:     st,
			lockout:   lockoutTracker{store: st, duration: p.TTL},
		}
	}

	return &AuthLimiter{
		policy:  p,
		tables:  byProto,
		opts:    buildOptions(opts),
		rawOpts: opts,
	}, nil
}

// Policy returns the validated policy.
func (a *AuthLimiter) Policy() AuthPolicy {
	return a.policy
}

func (a *AuthLimiter) table(protocol Protocol) (*authTable, error) {
	t, ok := a.tables[protocol]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, protocol)
	}
	return t, nil
}

func (a *AuthLimiter) failureKey(identifier string) CounterKey {
	return CounterKey{Identifier: identifier, Window: a.policy.TTL}
}

// CheckAttempt reports whether identifier may try to authenticate over protocol.
// A blocked attempt returns a *BlockedError that matches ErrLocked.
func (a *AuthLimiter) CheckAttempt(ctx context.Context, protocol Protocol, identifier string) (Attempt, error) {
	t, err := a.table(protocol)
	if err != nil {
		return Attempt{}, err
	}

	d, remaining := a.checkAttempt(ctx, t, identifier)
	a.opts.recorder.Decision(t.namespace, d)
	if !d.Allowed {
		a.opts.logger.DebugContext(ctx, "authentication attempt blocked",
			logger.Component("ratelimit"),
			logger.Protocol(string(protocol)),
			logger.Identifier(identifier),
			logger.Reason(string(d.Reason)),
			logger.RetryAfter(d.RetryAfter),
		)
		return Attempt{}, d.Err()
	}
	return Attempt{Remaining: remaining}, nil
}

func (a *AuthLimiter) checkAttempt(ctx context.Context, t *authTable, identifier string) (Decision, int) {
	if t.outage.check(ctx, t.store, t.namespace, a.opts) {
		if a.policy.FailMode == FailClosed {
			return blocked(ReasonUnavailable, a.policy.UnavailableRetry), 0
		}
		return allowed(), a.policy.Threshold
	}

	now := a.opts.clock()
	if left, ok := t.lockout.active(identifier, now); ok {
		return blocked(ReasonLocked, left), 0
	}

	failures := a.failures(t, identifier, now)
	if failures >= a.policy.Threshold {
		// Threshold reached without a live lockout, e.g. after a racing failure.
		left, err := t.lockout.engage(identifier, now)
		if err != nil {
			return blocked(ReasonUnavailable, a.policy.UnavailableRetry), 0
		}
		return blocked(ReasonLocked, left), 0
	}
	return allowed(), a.policy.Threshold - failures
}

func (a *AuthLimiter) failures(t *authTable, identifier string, now time.Time) int {
	e, ok := t.store.Read(a.failureKey(identifier))
	if !ok || e.stale(now, a.policy.TTL) {
		return 0
	}
	return int(e.Count)
}

// RecordFailure counts a failed authentication. Reaching the threshold locks
// identifier out of protocol for the policy TTL.
func (a *AuthLimiter) RecordFailure(ctx context.Context, protocol Protocol, identifier string) error {
	t, err := a.table(protocol)
	if err != nil {
		return err
	}

	now := a.opts.clock()
	n, err := t.store.Increment(a.failureKey(identifier), now)
	if err != nil {
		t.outage.check(ctx, t.store, t.namespace, a.opts)
		return nil
	}
	if n < int64(a.policy.Threshold) {
		return nil
	}

	left, err := t.lockout.engage(identifier, now)
	if err != nil {
		t.outage.check(ctx, t.store, t.namespace, a.opts)
		return nil
	}
	a.opts.logger.WarnContext(ctx, "authentication locked out",
		logger.Component("ratelimit"),
		logger.Protocol(string(protocol)),
		logger.Identifier(identifier),
		logger.RetryAfter(left),
	)
	return nil
}

// ClearAttempts forgets the failures and lockout of identifier for protocol.
// Clearing an unknown identifier is a no-op.
func (a *AuthLimiter) ClearAttempts(ctx context.Context, protocol Protocol, identifier string) error {
	t, err := a.table(protocol)
	if err != nil {
		return err
	}
	if err := t.store.Delete(a.failureKey(identifier)); err != nil {
		return err
	}
	return t.lockout.release(identifier)
}

// Sweepers returns one sweeper per protocol table.
func (a *AuthLimiter) Sweepers(opts ...Option) []*Sweeper {
	all := append(append([]Option{}, a.rawOpts...), opts...)
	out := make([]*Sweeper, 0, len(a.tables))
	for _, proto := range Protocols() {
		t := a.tables[proto]
		out = append(out, NewSweeper(t.store, Policy{
			Name:            t.namespace,
			Windows:         []Window{{Duration: a.policy.TTL, Max: a.policy.Threshold}},
			CleanupInterval: a.policy.CleanupInterval,
		}, all...))
	}
	return out
}
