package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/gatekeeper/pkg/ratelimit"
)

const namespace = "gatekeeper"

// ReasonAllowed labels allowed decisions.
const ReasonAllowed = "allowed"

var ErrRegister = errors.New("failed to register metrics")

// Recorder exports limiter events as Prometheus counters.
type Recorder struct {
	decisions   *prometheus.CounterVec
	evictions   *prometheus.CounterVec
	unavailable *prometheus.CounterVec
}

var _ ratelimit.Recorder = (*Recorder)(nil)

// NewRecorder creates the counters and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Rate limit decisions by namespace and reason.",
		}, []string{"namespace", "reason"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Entries removed by the cleanup sweeper.",
		}, []string{"namespace", "kind"}),
		unavailable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_unavailable_total",
			Help:      "Store outages observed by limiters.",
		}, []string{"namespace"}),
	}

	for _, c := range []prometheus.Collector{r.decisions, r.evictions, r.unavailable} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Join(ErrRegister, err)
		}
	}
	return r, nil
}

func (r *Recorder) Decision(ns string, d ratelimit.Decision) {
	reason := ReasonAllowed
	if !d.Allowed {
		reason = string(d.Reason)
	}
	r.decisions.WithLabelValues(ns, reason).Inc()
}

func (r *Recorder) Evicted(ns string, counters, lockouts int) {
	if counters > 0 {
		r.evictions.WithLabelValues(ns, "counter").Add(float64(counters))
	}
	if lockouts > 0 {
		r.evictions.WithLabelValues(ns, "lockout").Add(float64(lockouts))
	}
}

func (r *Recorder) StoreUnavailable(ns string) {
	r.unavailable.WithLabelValues(ns).Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
