// Package clientip resolves the originating client address of an HTTP
// request that may have passed through reverse proxies.
//
// Rate limiting keys on this address, so only headers set by proxies you
// control should be trusted. A Resolver checks its trusted headers in order
// and falls back to the TCP peer in RemoteAddr:
//
//	r := clientip.NewResolver("CF-Connecting-IP", "X-Forwarded-For")
//	handler = r.Middleware(handler)
//
// Downstream code reads the address with GetIPFromContext. GetIP and the
// package-level Middleware use DefaultHeaders.
//
// Addresses are normalized: IPv4-mapped IPv6 collapses to dotted IPv4 and
// invalid or zoned values are skipped. When nothing valid is found the
// result is an empty string.
package clientip
