package ratelimit

// Recorder receives limiter events for metrics.
// Implementations must be safe for concurrent use and must not block.
type Recorder interface {
	Decision(namespace string, d Decision)
	Evicted(namespace string, counters, lockouts int)
	StoreUnavailable(namespace string)
}

// NoopRecorder discards all events. It keeps nil checks out of the hot path.
type NoopRecorder struct{}

func (NoopRecorder) Decision(string, Decision) {}
func (NoopRecorder) Evicted(string, int, int)  {}
func (NoopRecorder) StoreUnavailable(string)   {}
