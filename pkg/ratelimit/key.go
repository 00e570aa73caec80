package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/dmitrymomot/gatekeeper/pkg/clientip"
)

// maxKeyLength bounds identifiers built from request data so a client
// cannot grow the store with arbitrarily long keys.
const maxKeyLength = 64

// KeyFunc extracts the limited identifier from an HTTP request.
// An empty result disables limiting for that request.
type KeyFunc func(*http.Request) string

// Composite joins the non-empty keys of keyFuncs with ":". Results longer
// than 64 chars are replaced by 32 hex chars of their SHA-256.
func Composite(keyFuncs ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(keyFuncs))
		for _, fn := range keyFuncs {
			if key := fn(r); key != "" {
				parts = append(parts, key)
			}
		}

		if len(parts) == 0 {
			return ""
		}
		return shorten(strings.Join(parts, ":"))
	}
}

func shorten(key string) string {
	if len(key) <= maxKeyLength {
		return key
	}
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:16])
}

// FirstOf returns the first non-empty key, e.g. an API key falling back to
// the client IP.
func FirstOf(keyFuncs ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		for _, fn := range keyFuncs {
			if key := fn(r); key != "" {
				return key
			}
		}
		return ""
	}
}

// IPKey keys requests by client IP as "ip:<addr>".
func IPKey(r *http.Request) string {
	if ip := clientip.GetIPFromContext(r.Context()); ip != "" {
		return "ip:" + ip
	}
	if ip := clientip.GetIP(r); ip != "" {
		return "ip:" + ip
	}
	return ""
}

// HeaderKey keys requests by the value of header, e.g. an API key.
// Long values are hashed.
func HeaderKey(header string) KeyFunc {
	return func(r *http.Request) string {
		v := strings.TrimSpace(r.Header.Get(header))
		if v == "" {
			return ""
		}
		return shorten(strings.ToLower(header) + ":" + v)
	}
}

// UserKey keys requests by the authenticated user returned by userID as "user:<id>".
func UserKey(userID func(*http.Request) string) KeyFunc {
	return func(r *http.Request) string {
		id := userID(r)
		if id == "" {
			return ""
		}
		return shorten("user:" + id)
	}
}

// MailKey builds the identifier of a mail account for protocol.
// Accounts compare case-insensitively.
func MailKey(protocol Protocol, account string) string {
	return string(protocol) + ":" + strings.ToLower(strings.TrimSpace(account))
}
