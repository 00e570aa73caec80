package ratelimit

import (
	"math"
	"time"
)

// Reason explains why a decision was made.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonRateLimited Reason = "rate_limited"
	ReasonLocked      Reason = "locked"
	// ReasonUnavailable is reported when the store is down and the policy fails closed.
	ReasonUnavailable Reason = "unavailable"
)

// Decision is the answer to "may this identifier proceed?".
type Decision struct {
	Allowed    bool
	Reason     Reason
	RetryAfter time.Duration
}

func allowed() Decision {
	return Decision{Allowed: true}
}

func blocked(reason Reason, retryAfter time.Duration) Decision {
	return Decision{Reason: reason, RetryAfter: max(0, retryAfter)}
}

// RetryAfterSeconds returns the retry hint rounded up to whole seconds.
// Returns 0 for allowed decisions.
func (d Decision) RetryAfterSeconds() int {
	if d.Allowed {
		return 0
	}
	return retrySeconds(d.RetryAfter)
}

// Err returns nil for allowed decisions and a *BlockedError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &BlockedError{Reason: d.Reason, RetryAfter: d.RetryAfter}
}

func retrySeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// CounterKey addresses one fixed-window counter inside a table.
type CounterKey struct {
	Identifier string
	Window     time.Duration
}

// Entry is a snapshot of a counter.
type Entry struct {
	Count       int64
	WindowStart time.Time
}

// stale reports whether the window has rotated at now.
func (e Entry) stale(now time.Time, window time.Duration) bool {
	return now.Sub(e.WindowStart) >= window
}

// WindowStatus describes usage of a single configured window.
type WindowStatus struct {
	Window    time.Duration
	Limit     int
	Used      int
	Remaining int
	ResetAt   time.Time
}

// Status holds one WindowStatus per configured window, in policy order.
type Status []WindowStatus

// MostRestrictive returns the window with the fewest remaining requests.
// Ties go to the window that resets last.
func (s Status) MostRestrictive() (WindowStatus, bool) {
	if len(s) == 0 {
		return WindowStatus{}, false
	}
	best := s[0]
	for _, ws := range s[1:] {
		if ws.Remaining < best.Remaining || (ws.Remaining == best.Remaining && ws.ResetAt.After(best.ResetAt)) {
			best = ws
		}
	}
	return best, true
}

// Used returns usage of the window with the given duration.
func (s Status) Used(window time.Duration) int {
	for _, ws := range s {
		if ws.Window == window {
			return ws.Used
		}
	}
	return 0
}
