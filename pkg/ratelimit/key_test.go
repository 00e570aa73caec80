package ratelimit_test

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmitrymomot/gatekeeper/pkg/clientip"
	"github.com/dmitrymomot/gatekeeper/pkg/ratelimit"

	"github.com/stretchr/testify/assert"
)

func TestComposite(t *testing.T) {
	t.Parallel()

	ipKeyFunc := func(r *http.Request) string {
		return r.RemoteAddr
	}

	pathKeyFunc := func(r *http.Request) string {
		return r.URL.Path
	}

	userKeyFunc := func(r *http.Request) string {
		return r.Header.Get("X-User-ID")
	}

	tests := []struct {
		name     string
		keyFuncs []ratelimit.KeyFunc
		setup    func(*http.Request)
		expected string
	}{
		{
			name:     "empty key functions",
			keyFuncs: []ratelimit.KeyFunc{},
			expected: "",
		},
		{
			name:     "single key function",
			keyFuncs: []ratelimit.KeyFunc{ipKeyFunc},
			setup: func(r *http.Request) {
				r.RemoteAddr = "192.168.1.1:8080"
			},
			expected: "192.168.1.1:8080",
		},
		{
			name:     "single key under 64 chars",
			keyFuncs: []ratelimit.KeyFunc{pathKeyFunc},
			setup: func(r *http.Request) {
				r.URL.Path = "/api/v1/users"
			},
			expected: "/api/v1/users",
		},
		{
			name:     "multiple keys combined",
			keyFuncs: []ratelimit.KeyFunc{ipKeyFunc, pathKeyFunc},
			setup: func(r *http.Request) {
				r.RemoteAddr = "192.168.1.1:8080"
				r.URL.Path = "/api/v1/users"
			},
			expected: "192.168.1.1:8080:/api/v1/users",
		},
		{
			name:     "skip empty keys",
			keyFuncs: []ratelimit.KeyFunc{ipKeyFunc, userKeyFunc, pathKeyFunc},
			setup: func(r *http.Request) {
				r.RemoteAddr = "192.168.1.1:8080"
				r.URL.Path = "/api/v1/users"
			},
			expected: "192.168.1.1:8080:/api/v1/users",
		},
		{
			name: "all empty keys",
			keyFuncs: []ratelimit.KeyFunc{
				func(r *http.Request) string { return "" },
				func(r *http.Request) string { return "" },
			},
			expected: "",
		},
		{
			name: "long key gets hashed",
			keyFuncs: []ratelimit.KeyFunc{
				func(r *http.Request) string {
					return strings.Repeat("a", 70)
				},
			},
			setup: func(r *http.Request) {},
			expected: func() string {
				key := strings.Repeat("a", 70)
				hash := sha256.Sum256([]byte(key))
				return hex.EncodeToString(hash[:16])
			}(),
		},
		{
			name: "combined key over 64 chars gets hashed",
			keyFuncs: []ratelimit.KeyFunc{
				func(r *http.Request) string { return strings.Repeat("a", 30) },
				func(r *http.Request) string { return strings.Repeat("b", 30) },
				func(r *http.Request) string { return strings.Repeat("c", 10) },
			},
			setup: func(r *http.Request) {},
			expected: func() string {
				combined := strings.Repeat("a", 30) + ":" + strings.Repeat("b", 30) + ":" + strings.Repeat("c", 10)
				hash := sha256.Sum256([]byte(combined))
				return hex.EncodeToString(hash[:16])
			}(),
		},
		{
			name: "exactly 64 chars not hashed",
			keyFuncs: []ratelimit.KeyFunc{
				func(r *http.Request) string { return strings.Repeat("x", 64) },
			},
			setup:    func(r *http.Request) {},
			expected: strings.Repeat("x", 64),
		},
		{
			name: "combined exactly 64 chars not hashed",
			keyFuncs: []ratelimit.KeyFunc{
				func(r *http.Request) string { return strings.Repeat("a", 31) },
				func(r *http.Request) string { return strings.Repeat("b", 32) },
			},
			setup:    func(r *http.Request) {},
			expected: strings.Repeat("a", 31) + ":" + strings.Repeat("b", 32),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.setup != nil {
				tt.setup(req)
			}

			compositeFunc := ratelimit.Composite(tt.keyFuncs...)
			result := compositeFunc(req)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestComposite_HashCollisionResistance(t *testing.T) {
	t.Parallel()

	keyFunc1 := ratelimit.Composite(
		func(r *http.Request) string { return strings.Repeat("a", 100) },
		func(r *http.Request) string { return strings.Repeat("b", 100) },
	)

	keyFunc2 := ratelimit.Composite(
		func(r *http.Request) string { return strings.Repeat("b", 100) },
		func(r *http.Request) string { return strings.Repeat("a", 100) },
	)

	req := httptest.NewRequest("GET", "/test", nil)

	key1 := keyFunc1(req)
	key2 := keyFunc2(req)

	assert.NotEqual(t, key1, key2, "different key combinations should produce different hashes")
	assert.Len(t, key1, 32, "hashed key should be 32 hex chars (128 bits)")
	assert.Len(t, key2, 32, "hashed key should be 32 hex chars (128 bits)")
}

func TestIPKey(t *testing.T) {
	t.Parallel()

	t.Run("from remote addr", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "203.0.113.7:51234"
		assert.Equal(t, "ip:203.0.113.7", ratelimit.IPKey(req))
	})

	t.Run("prefers context value", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "203.0.113.7:51234"
		req = req.WithContext(clientip.SetIPToContext(req.Context(), "198.51.100.1"))
		assert.Equal(t, "ip:198.51.100.1", ratelimit.IPKey(req))
	})

	t.Run("unparseable address", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "not-an-ip"
		assert.Empty(t, ratelimit.IPKey(req))
	})
}

func TestHeaderKey(t *testing.T) {
	t.Parallel()

	keyFunc := ratelimit.HeaderKey("X-API-Key")

	req := httptest.NewRequest("GET", "/", nil)
	assert.Empty(t, keyFunc(req))

	req.Header.Set("X-API-Key", "  k-123 ")
	assert.Equal(t, "x-api-key:k-123", keyFunc(req))

	req.Header.Set("X-API-Key", strings.Repeat("k", 100))
	assert.Len(t, keyFunc(req), 32)
}

func TestUserKey(t *testing.T) {
	t.Parallel()

	keyFunc := ratelimit.UserKey(func(r *http.Request) string {
		return r.Header.Get("X-User-ID")
	})

	req := httptest.NewRequest("GET", "/", nil)
	assert.Empty(t, keyFunc(req))

	req.Header.Set("X-User-ID", "42")
	assert.Equal(t, "user:42", keyFunc(req))
}

func TestFirstOf(t *testing.T) {
	t.Parallel()

	keyFunc := ratelimit.FirstOf(ratelimit.HeaderKey("X-API-Key"), ratelimit.IPKey)

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	assert.Equal(t, "ip:203.0.113.7", keyFunc(req))

	req.Header.Set("X-API-Key", "k-1")
	assert.Equal(t, "x-api-key:k-1", keyFunc(req))

	assert.Empty(t, ratelimit.FirstOf()(req))
}

func TestMailKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "imap:id@example.com", ratelimit.MailKey(ratelimit.ProtocolIMAP, " ID@Example.com "))
	assert.NotEqual(t,
		ratelimit.MailKey(ratelimit.ProtocolIMAP, "id@example.com"),
		ratelimit.MailKey(ratelimit.ProtocolSMTP, "id@example.com"),
	)
}

func BenchmarkComposite(b *testing.B) {
	keyFunc := ratelimit.Composite(
		ratelimit.IPKey,
		func(r *http.Request) string { return r.URL.Path },
		ratelimit.HeaderKey("X-API-Key"),
	)

	req := httptest.NewRequest("GET", "/api/v1/users/123", nil)
	req.RemoteAddr = "192.168.1.1:8080"
	req.Header.Set("X-API-Key", "key-12345")

	b.ResetTimer()
	for range b.N {
		_ = keyFunc(req)
	}
}
