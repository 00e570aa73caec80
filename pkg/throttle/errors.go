package throttle

import "errors"

var (
	ErrInvalidConfig   = errors.New("invalid rate limit configuration")
	ErrUnknownConsumer = errors.New("unknown rate limit consumer")
)
