package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekeeper/pkg/metrics"
	"github.com/dmitrymomot/gatekeeper/pkg/ratelimit"
)

func TestRecorder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	require.NoError(t, err)

	store := ratelimit.NewMemoryStore()
	l, err := ratelimit.New(store.Table("api"), ratelimit.Policy{
		Name:    "api",
		Windows: []ratelimit.Window{{Duration: time.Minute, Max: 2}},
	}, ratelimit.WithRecorder(rec))
	require.NoError(t, err)

	for range 3 {
		l.Allow(ctx, "id")
	}

	decisions := `
# HELP gatekeeper_decisions_total Rate limit decisions by namespace and reason.
# TYPE gatekeeper_decisions_total counter
gatekeeper_decisions_total{namespace="api",reason="allowed"} 2
gatekeeper_decisions_total{namespace="api",reason="rate_limited"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(decisions), "gatekeeper_decisions_total"))
	count, err := testutil.GatherAndCount(reg, "gatekeeper_decisions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rec.Evicted("api", 3, 0)
	rec.Evicted("api", 0, 2)
	rec.StoreUnavailable("search")

	expected := `
# HELP gatekeeper_evictions_total Entries removed by the cleanup sweeper.
# TYPE gatekeeper_evictions_total counter
gatekeeper_evictions_total{kind="counter",namespace="api"} 3
gatekeeper_evictions_total{kind="lockout",namespace="api"} 2
# HELP gatekeeper_store_unavailable_total Store outages observed by limiters.
# TYPE gatekeeper_store_unavailable_total counter
gatekeeper_store_unavailable_total{namespace="search"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"gatekeeper_evictions_total", "gatekeeper_store_unavailable_total"))
}

func TestNewRecorder_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := metrics.NewRecorder(reg)
	require.NoError(t, err)

	_, err = metrics.NewRecorder(reg)
	assert.ErrorIs(t, err, metrics.ErrRegister)
}

func TestHandler(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	require.NoError(t, err)
	rec.StoreUnavailable("webhook")

	srv := httptest.NewServer(metrics.Handler(reg))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `gatekeeper_store_unavailable_total{namespace="webhook"} 1`)
}
