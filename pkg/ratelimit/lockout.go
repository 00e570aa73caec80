package ratelimit

import "time"

// lockoutTracker runs the Unlocked -> Locked -> Unlocked state machine of one
// namespace. A lockout is independent of window counters and always wins while active.
type lockoutTracker struct {
	store    Store
	duration time.Duration
}

// active returns the time left on an identifier's lockout.
// An expired entry that the sweeper has not removed yet counts as unlocked.
func (lt lockoutTracker) active(identifier string, now time.Time) (time.Duration, bool) {
	until, ok := lt.store.GetLockout(identifier)
	if !ok || !until.After(now) {
		return 0, false
	}
	return until.Sub(now), true
}

// engage locks identifier for the configured duration and returns the time left,
// which can exceed duration when a longer lockout was already installed.
func (lt lockoutTracker) engage(identifier string, now time.Time) (time.Duration, error) {
	return lt.engageFor(identifier, now, lt.duration)
}

func (lt lockoutTracker) engageFor(identifier string, now time.Time, d time.Duration) (time.Duration, error) {
	if err := lt.store.SetLockout(identifier, now.Add(d)); err != nil {
		return 0, err
	}
	if left, ok := lt.active(identifier, now); ok {
		return left, nil
	}
	return d, nil
}

func (lt lockoutTracker) release(identifier string) error {
	return lt.store.ClearLockout(identifier)
}
