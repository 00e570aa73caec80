package mailauth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Verifier checks mail account credentials. It returns ErrInvalidCredentials
// for a wrong account or password; any other error is a backend failure.
type Verifier interface {
	Verify(ctx context.Context, account, password string) error
}

// MemoryVerifier keeps bcrypt hashes of account passwords in memory.
type MemoryVerifier struct {
	mu     sync.RWMutex
	hashes map[string][]byte
	cost   int
	// dummy is compared for unknown accounts so they take as long as known ones.
	dummy []byte
}

type VerifierOption func(*MemoryVerifier)

// WithBcryptCost sets the bcrypt cost used by SetPassword.
func WithBcryptCost(cost int) VerifierOption {
	return func(v *MemoryVerifier) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			v.cost = cost
		}
	}
}

// NewMemoryVerifier creates an empty verifier.
func NewMemoryVerifier(opts ...VerifierOption) *MemoryVerifier {
	v := &MemoryVerifier{
		hashes: make(map[string][]byte),
		cost:   bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.dummy, _ = bcrypt.GenerateFromPassword([]byte("gatekeeper-dummy-password"), v.cost)
	return v
}

// SetPassword stores the hash of password for account, replacing any previous one.
func (v *MemoryVerifier) SetPassword(account, password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), v.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.hashes[normalizeAccount(account)] = hash
	return nil
}

// Remove deletes account. Removing an unknown account is a no-op.
func (v *MemoryVerifier) Remove(account string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.hashes, normalizeAccount(account))
}

func (v *MemoryVerifier) Verify(_ context.Context, account, password string) error {
	v.mu.RLock()
	hash, ok := v.hashes[normalizeAccount(account)]
	v.mu.RUnlock()

	if !ok {
		_ = bcrypt.CompareHashAndPassword(v.dummy, []byte(password))
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func normalizeAccount(account string) string {
	return strings.ToLower(strings.TrimSpace(account))
}
