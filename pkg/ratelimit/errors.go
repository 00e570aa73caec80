package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Decision errors, matched with errors.Is on a *BlockedError.
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrLocked      = errors.New("identifier is locked out")

	// ErrStoreUnavailable is returned by store writes when the table is missing or torn down.
	// Limiter decisions resolve it through the policy's FailMode; a fail-closed
	// decision's error matches it.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")

	ErrInvalidPolicy   = errors.New("invalid rate limit policy")
	ErrUnknownProtocol = errors.New("unknown mail protocol")
)

// BlockedError carries a blocked decision through code paths that expect an error.
type BlockedError struct {
	Reason     Reason
	RetryAfter time.Duration
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s: retry after %ds", e.Reason, retrySeconds(e.RetryAfter))
}

// Unwrap maps the reason to ErrLocked, ErrStoreUnavailable or ErrRateLimited.
func (e *BlockedError) Unwrap() error {
	switch e.Reason {
	case ReasonLocked:
		return ErrLocked
	case ReasonUnavailable:
		return ErrStoreUnavailable
	default:
		return ErrRateLimited
	}
}

// RetryAfterSeconds returns the retry hint rounded up to whole seconds.
func (e *BlockedError) RetryAfterSeconds() int {
	return retrySeconds(e.RetryAfter)
}

// AsBlocked extracts a *BlockedError from err.
func AsBlocked(err error) (*BlockedError, bool) {
	var be *BlockedError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
