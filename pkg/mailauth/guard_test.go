package mailauth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/gatekeeper/pkg/mailauth"
	"github.com/dmitrymomot/gatekeeper/pkg/ratelimit"
)

type failingVerifier struct{}

func (failingVerifier) Verify(context.Context, string, string) error {
	return errors.New("directory offline")
}

func newGuard(t *testing.T, verifier mailauth.Verifier) (*mailauth.Guard, *ratelimit.AuthLimiter) {
	t.Helper()
	limiter, err := ratelimit.NewAuthLimiter(ratelimit.NewMemoryStore().Tables(), ratelimit.MailAuthPolicy())
	require.NoError(t, err)
	return mailauth.NewGuard(limiter, verifier), limiter
}

func newVerifier(t *testing.T) *mailauth.MemoryVerifier {
	t.Helper()
	v := mailauth.NewMemoryVerifier(mailauth.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, v.SetPassword("Id@Example.com", "correct horse"))
	return v
}

func TestMemoryVerifier(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v := newVerifier(t)

	assert.NoError(t, v.Verify(ctx, "id@example.com", "correct horse"))
	assert.ErrorIs(t, v.Verify(ctx, "id@example.com", "wrong"), mailauth.ErrInvalidCredentials)
	assert.ErrorIs(t, v.Verify(ctx, "nobody@example.com", "correct horse"), mailauth.ErrInvalidCredentials)
	assert.ErrorIs(t, v.SetPassword("x@example.com", ""), mailauth.ErrEmptyPassword)

	v.Remove("ID@example.com")
	assert.ErrorIs(t, v.Verify(ctx, "id@example.com", "correct horse"), mailauth.ErrInvalidCredentials)
}

func TestGuard_Authenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		g, _ := newGuard(t, newVerifier(t))
		assert.NoError(t, g.Authenticate(ctx, ratelimit.ProtocolSMTP, "id@example.com", "correct horse"))
	})

	t.Run("failures lock out the protocol only", func(t *testing.T) {
		t.Parallel()
		g, _ := newGuard(t, newVerifier(t))

		for range 6 {
			err := g.Authenticate(ctx, ratelimit.ProtocolIMAP, "id@example.com", "wrong")
			require.ErrorIs(t, err, mailauth.ErrInvalidCredentials)
		}

		err := g.Authenticate(ctx, ratelimit.ProtocolIMAP, "id@example.com", "correct horse")
		assert.ErrorIs(t, err, ratelimit.ErrLocked, "correct password is refused while locked")

		assert.NoError(t, g.Authenticate(ctx, ratelimit.ProtocolSMTP, "id@example.com", "correct horse"))
	})

	t.Run("success clears failures", func(t *testing.T) {
		t.Parallel()
		g, limiter := newGuard(t, newVerifier(t))

		for range 5 {
			_ = g.Authenticate(ctx, ratelimit.ProtocolPOP3, "id@example.com", "wrong")
		}
		require.NoError(t, g.Authenticate(ctx, ratelimit.ProtocolPOP3, "ID@example.com ", "correct horse"))

		attempt, err := limiter.CheckAttempt(ctx, ratelimit.ProtocolPOP3, ratelimit.MailKey(ratelimit.ProtocolPOP3, "id@example.com"))
		require.NoError(t, err)
		assert.Equal(t, 6, attempt.Remaining)
	})

	t.Run("backend failure is not counted", func(t *testing.T) {
		t.Parallel()
		g, limiter := newGuard(t, failingVerifier{})

		err := g.Authenticate(ctx, ratelimit.ProtocolSMTP, "id@example.com", "pw")
		assert.ErrorIs(t, err, mailauth.ErrVerificationFailed)

		attempt, err := limiter.CheckAttempt(ctx, ratelimit.ProtocolSMTP, ratelimit.MailKey(ratelimit.ProtocolSMTP, "id@example.com"))
		require.NoError(t, err)
		assert.Equal(t, 6, attempt.Remaining)
	})

	t.Run("unknown protocol", func(t *testing.T) {
		t.Parallel()
		g, _ := newGuard(t, newVerifier(t))
		err := g.Authenticate(ctx, ratelimit.Protocol("nntp"), "id@example.com", "correct horse")
		assert.ErrorIs(t, err, ratelimit.ErrUnknownProtocol)
	})
}
