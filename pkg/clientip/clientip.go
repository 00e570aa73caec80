package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// DefaultHeaders are consulted in order before falling back to RemoteAddr.
// Clients can set them freely; trust them only behind a proxy that overwrites them.
var DefaultHeaders = []string{
	"CF-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// Resolver extracts the client address from trusted proxy headers.
// The zero value trusts no header and only reads RemoteAddr.
type Resolver struct {
	headers []string
}

// NewResolver trusts headers in the given order. Blank names are skipped.
func NewResolver(headers ...string) *Resolver {
	clean := make([]string, 0, len(headers))
	for _, h := range headers {
		if h = strings.TrimSpace(h); h != "" {
			clean = append(clean, http.CanonicalHeaderKey(h))
		}
	}
	return &Resolver{headers: clean}
}

// Headers returns the trusted header names.
func (r *Resolver) Headers() []string {
	return append([]string(nil), r.headers...)
}

// IP returns the normalized client address, or "" when none is valid.
// A list-valued header such as X-Forwarded-For yields its first valid entry.
func (r *Resolver) IP(req *http.Request) string {
	for _, h := range r.headers {
		v := req.Header.Get(h)
		if v == "" {
			continue
		}
		for part := range strings.SplitSeq(v, ",") {
			if ip := parseIP(part); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return parseIP(req.RemoteAddr)
	}
	return parseIP(host)
}

var defaultResolver = NewResolver(DefaultHeaders...)

// GetIP resolves the client address with DefaultHeaders.
func GetIP(r *http.Request) string {
	return defaultResolver.IP(r)
}

// parseIP normalizes s. IPv4-mapped IPv6 addresses collapse to IPv4 and
// zoned addresses are rejected.
func parseIP(s string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil || addr.Zone() != "" {
		return ""
	}
	return addr.Unmap().String()
}
