package ratelimit

import (
	"net/http"
	"strconv"
)

// MiddlewareOption configures middleware behavior.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	onLimitReached func(w http.ResponseWriter, r *http.Request, d Decision)
	skipFunc       func(r *http.Request) bool
	recordFunc     func(r *http.Request, status int) bool
}

// WithOnLimitReached replaces the default 429 response. Retry-After and
// X-RateLimit-* headers are already set when fn runs.
func WithOnLimitReached(fn func(w http.ResponseWriter, r *http.Request, d Decision)) MiddlewareOption {
	return func(c *middlewareConfig) {
		if fn != nil {
			c.onLimitReached = fn
		}
	}
}

// WithSkipFunc sets a function to determine if rate limiting should be skipped.
func WithSkipFunc(fn func(r *http.Request) bool) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.skipFunc = fn
	}
}

// WithRecordFunc defers recording until the handler has responded and counts
// the request only when fn returns true, e.g. to count failed logins only.
func WithRecordFunc(fn func(r *http.Request, status int) bool) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.recordFunc = fn
	}
}

func defaultLimitReached(w http.ResponseWriter, _ *http.Request, _ Decision) {
	http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
}

// Middleware enforces limiter on every request keyed by keyFunc.
// Requests with an empty key pass through unlimited.
func Middleware(limiter *Limiter, keyFunc KeyFunc, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if limiter == nil {
		panic("ratelimit.Middleware: limiter is required")
	}
	if keyFunc == nil {
		panic("ratelimit.Middleware: keyFunc is required")
	}

	config := &middlewareConfig{onLimitReached: defaultLimitReached}
	for _, opt := range opts {
		opt(config)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.skipFunc != nil && config.skipFunc(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			d := limiter.Check(ctx, key)
			if !d.Allowed {
				setLimitHeaders(w, limiter.Status(ctx, key))
				w.Header().Set("Retry-After", strconv.Itoa(max(1, d.RetryAfterSeconds())))
				config.onLimitReached(w, r, d)
				return
			}

			if config.recordFunc == nil {
				limiter.Record(ctx, key)
				setLimitHeaders(w, limiter.Status(ctx, key))
				next.ServeHTTP(w, r)
				return
			}

			setLimitHeaders(w, limiter.Status(ctx, key))
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			if config.recordFunc(r, sw.status) {
				limiter.Record(ctx, key)
			}
		})
	}
}

// setLimitHeaders reports the most restrictive window.
func setLimitHeaders(w http.ResponseWriter, status Status) {
	ws, ok := status.MostRestrictive()
	if !ok {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(ws.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(ws.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(ws.ResetAt.Unix(), 10))
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
