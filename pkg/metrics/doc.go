// Package metrics implements ratelimit.Recorder with Prometheus counters:
//
//	gatekeeper_decisions_total{namespace,reason}
//	gatekeeper_evictions_total{namespace,kind}
//	gatekeeper_store_unavailable_total{namespace}
//
// reason is "allowed", "rate_limited", "locked" or "unavailable"; kind is
// "counter" or "lockout".
package metrics
