package throttle

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/gatekeeper/pkg/ratelimit"
)

// Set owns the shared store and every consumer limiter built on it.
type Set struct {
	store    *ratelimit.MemoryStore
	api      *ratelimit.Limiter
	search   *ratelimit.Limiter
	webhook  *ratelimit.Limiter
	mailAuth *ratelimit.AuthLimiter
	limiters map[string]*ratelimit.Limiter
	sweepers []*ratelimit.Sweeper
}

// New resolves cfg into policies and builds the Set.
func New(cfg Config, opts ...ratelimit.Option) (*Set, error) {
	p, err := cfg.Policies()
	if err != nil {
		return nil, err
	}
	return NewFromPolicies(p, opts...)
}

// NewFromPolicies builds a Set over a fresh MemoryStore. opts apply to every
// limiter and sweeper.
func NewFromPolicies(p Policies, opts ...ratelimit.Option) (*Set, error) {
	store := ratelimit.NewMemoryStore()
	s := &Set{
		store:    store,
		limiters: make(map[string]*ratelimit.Limiter, 3),
	}

	for _, policy := range []ratelimit.Policy{p.API, p.Search, p.Webhook} {
		l, err := ratelimit.New(store.Table(policy.Name), policy, opts...)
		if err != nil {
			return nil, errors.Join(ErrInvalidConfig, err)
		}
		if _, dup := s.limiters[policy.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate consumer %q", ErrInvalidConfig, policy.Name)
		}
		s.limiters[policy.Name] = l
		s.sweepers = append(s.sweepers, l.Sweeper())
	}
	s.api = s.limiters[p.API.Name]
	s.search = s.limiters[p.Search.Name]
	s.webhook = s.limiters[p.Webhook.Name]

	auth, err := ratelimit.NewAuthLimiter(store.Tables(), p.MailAuth, opts...)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	s.mailAuth = auth
	s.sweepers = append(s.sweepers, auth.Sweepers()...)

	return s, nil
}

func (s *Set) API() *ratelimit.Limiter          { return s.api }
func (s *Set) Search() *ratelimit.Limiter       { return s.search }
func (s *Set) Webhook() *ratelimit.Limiter      { return s.webhook }
func (s *Set) MailAuth() *ratelimit.AuthLimiter { return s.mailAuth }

// Limiter looks a consumer up by namespace.
func (s *Set) Limiter(name string) (*ratelimit.Limiter, error) {
	l, ok := s.limiters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConsumer, name)
	}
	return l, nil
}

// Names lists the HTTP consumers in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.limiters))
	for name := range s.limiters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Sweepers returns the sweepers of every namespace, mail protocols included.
func (s *Set) Sweepers() []*ratelimit.Sweeper {
	return slices.Clone(s.sweepers)
}

// Run sweeps every namespace until ctx is done.
func (s *Set) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, sw := range s.sweepers {
		g.Go(func() error {
			return sw.Run(ctx)
		})
	}
	return g.Wait()
}

// Ready returns ratelimit.ErrStoreUnavailable once the store is gone.
func (s *Set) Ready(context.Context) error {
	if !s.store.Available() {
		return ratelimit.ErrStoreUnavailable
	}
	return nil
}

// Close tears the store down. Limiters keep working afterwards and answer
// according to their fail mode.
func (s *Set) Close() error {
	return s.store.Close()
}
