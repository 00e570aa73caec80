package ratelimit

import "time"

// TableFunc returns the Store of a namespace.
type TableFunc func(namespace string) Store

// Store holds the counters and lockouts of one policy namespace.
// Implementations must be safe for concurrent use and must report "absent"
// from reads rather than fail when the backing table is unavailable.
type Store interface {
	// GetOrInit returns the existing entry or installs a zero entry starting at now.
	GetOrInit(key CounterKey, now time.Time) Entry

	// Increment atomically bumps the counter of the current window, rotating a
	// stale window first, and returns the new count.
	Increment(key CounterKey, now time.Time) (int64, error)

	Read(key CounterKey) (Entry, bool)
	Delete(key CounterKey) error

	// SetLockout installs a lockout; an existing later deadline is kept.
	SetLockout(identifier string, until time.Time) error
	GetLockout(identifier string) (time.Time, bool)
	ClearLockout(identifier string) error

	// ScanExpired lists counters whose window ended more than one window ago
	// and lockouts whose deadline has passed.
	ScanExpired(now time.Time) Expired

	// EvictCounter and EvictLockout delete an entry only if it is still expired at now.
	EvictCounter(key CounterKey, now time.Time) bool
	EvictLockout(identifier string, now time.Time) bool

	Available() bool
	Len() (counters, lockouts int)
}

// Expired is the result of a store scan.
type Expired struct {
	Counters []CounterKey
	Lockouts []string
}

// Empty reports whether the scan found nothing.
func (e Expired) Empty() bool {
	return len(e.Counters) == 0 && len(e.Lockouts) == 0
}

// counterExpired applies the sweeper grace period: one full window after the window ended.
func counterExpired(start time.Time, window time.Duration, now time.Time) bool {
	return now.Sub(start) > 2*window
}
