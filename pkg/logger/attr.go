package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// RequestID records the request identifier under the key "request_id".
// If id is nil, it returns an empty Attr.
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Namespace records the limiter namespace under the key "namespace".
func Namespace(name string) slog.Attr {
	return slog.String("namespace", name)
}

// Identifier records the limited identifier under the key "identifier".
func Identifier(id string) slog.Attr {
	return slog.String("identifier", id)
}

// Reason records a decision reason under the key "reason".
// An empty reason returns an empty Attr.
func Reason(reason string) slog.Attr {
	if reason == "" {
		return slog.Attr{}
	}
	return slog.String("reason", reason)
}

// RetryAfter records a retry delay in whole seconds under the key "retry_after".
func RetryAfter(d time.Duration) slog.Attr {
	return slog.Int64("retry_after", int64((d+time.Second-1)/time.Second))
}

// Protocol records a mail protocol under the key "protocol".
func Protocol(name string) slog.Attr {
	return slog.String("protocol", name)
}

// Evicted records sweep results under the key "evicted".
func Evicted(counters, lockouts int) slog.Attr {
	return Group("evicted",
		slog.Int("counters", counters),
		slog.Int("lockouts", lockouts),
	)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Handler records the handler name under the key "handler".
func Handler(name string) slog.Attr {
	return slog.String("handler", name)
}
