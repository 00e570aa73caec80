package ratelimit

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// FailMode decides what a limiter answers when its store is unavailable.
type FailMode string

const (
	// FailOpen lets requests through unlimited.
	FailOpen FailMode = "open"
	// FailClosed denies requests. Use it for authentication endpoints.
	FailClosed FailMode = "closed"
)

// ParseFailMode converts a config string into a FailMode.
func ParseFailMode(s string) (FailMode, error) {
	switch FailMode(strings.ToLower(strings.TrimSpace(s))) {
	case FailOpen, "":
		return FailOpen, nil
	case FailClosed:
		return FailClosed, nil
	default:
		return "", fmt.Errorf("%w: fail mode must be %q or %q, got %q", ErrInvalidPolicy, FailOpen, FailClosed, s)
	}
}

const (
	defaultCleanupInterval  = 5 * time.Minute
	defaultUnavailableRetry = time.Second
)

// Window is a fixed counting interval with its maximum number of attempts.
// Max <= 0 blocks every request.
type Window struct {
	Duration time.Duration
	Max      int
}

func (w Window) String() string {
	return fmt.Sprintf("%d/%s", w.Max, w.Duration)
}

// Policy is the immutable configuration of one consumer.
type Policy struct {
	// Name is the table namespace inside the shared store.
	Name string
	// Windows are evaluated in order; exceeding any of them blocks.
	Windows []Window
	// Lockout escalates an exceeded window into a lockout of this length. Zero disables it.
	Lockout time.Duration
	// CleanupInterval is the sweeper tick. Defaults to 5 minutes.
	CleanupInterval time.Duration
	// FailMode applies when the store is unavailable. Defaults to FailOpen.
	FailMode FailMode
	// UnavailableRetry is the retry hint reported when failing closed. Defaults to 1 second.
	UnavailableRetry time.Duration
}

// Validate checks the policy and fills defaults into a copy.
func (p Policy) Validate() (Policy, error) {
	if strings.TrimSpace(p.Name) == "" {
		return p, fmt.Errorf("%w: name is required", ErrInvalidPolicy)
	}
	if len(p.Windows) == 0 {
		return p, fmt.Errorf("%w: %s: at least one window is required", ErrInvalidPolicy, p.Name)
	}

	seen := make(map[time.Duration]struct{}, len(p.Windows))
	for i, w := range p.Windows {
		if w.Duration <= 0 {
			return p, fmt.Errorf("%w: %s: window %d duration must be positive, got %v", ErrInvalidPolicy, p.Name, i, w.Duration)
		}
		if _, dup := seen[w.Duration]; dup {
			return p, fmt.Errorf("%w: %s: duplicate window %v", ErrInvalidPolicy, p.Name, w.Duration)
		}
		seen[w.Duration] = struct{}{}
	}
	if p.Lockout < 0 {
		return p, fmt.Errorf("%w: %s: lockout must not be negative, got %v", ErrInvalidPolicy, p.Name, p.Lockout)
	}
	if p.CleanupInterval < 0 {
		return p, fmt.Errorf("%w: %s: cleanup interval must not be negative, got %v", ErrInvalidPolicy, p.Name, p.CleanupInterval)
	}

	mode, err := ParseFailMode(string(p.FailMode))
	if err != nil {
		return p, err
	}

	out := p
	out.Windows = slices.Clone(p.Windows)
	out.FailMode = mode
	if out.CleanupInterval == 0 {
		out.CleanupInterval = defaultCleanupInterval
	}
	if out.UnavailableRetry <= 0 {
		out.UnavailableRetry = defaultUnavailableRetry
	}
	return out, nil
}

// HasLockout reports whether exceeding a window escalates to a lockout.
func (p Policy) HasLockout() bool {
	return p.Lockout > 0
}
