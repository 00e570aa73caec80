package main

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/gatekeeper/pkg/clientip"
	"github.com/dmitrymomot/gatekeeper/pkg/httpserver"
	"github.com/dmitrymomot/gatekeeper/pkg/mailauth"
	"github.com/dmitrymomot/gatekeeper/pkg/metrics"
	"github.com/dmitrymomot/gatekeeper/pkg/ratelimit"
	"github.com/dmitrymomot/gatekeeper/pkg/requestid"
	"github.com/dmitrymomot/gatekeeper/pkg/throttle"
)

type routerDeps struct {
	set        *throttle.Set
	guard      *mailauth.Guard
	resolver   *clientip.Resolver
	gatherer   prometheus.Gatherer
	apiKeys    []string
	adminToken string
	logger     *slog.Logger
}

func newRouter(d routerDeps) http.Handler {
	h := &handlers{set: d.set, guard: d.guard, logger: d.logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(d.resolver.Middleware)

	r.Get("/healthz", httpserver.HealthCheckHandler(d.logger))
	r.Get("/readyz", httpserver.HealthCheckHandler(d.logger, httpserver.Check{Name: "store", Probe: d.set.Ready}))
	r.Handle("/metrics", metrics.Handler(d.gatherer))

	r.Route("/api", func(r chi.Router) {
		r.Use(ratelimit.Middleware(d.set.API(),
			ratelimit.FirstOf(knownKey("X-API-Key", d.apiKeys), ratelimit.IPKey),
			ratelimit.WithOnLimitReached(writeLimited),
		))
		r.Get("/ping", h.ping)
	})

	r.With(ratelimit.Middleware(d.set.Search(), ratelimit.IPKey,
		ratelimit.WithOnLimitReached(writeLimited),
	)).Get("/search", h.search)

	r.With(ratelimit.Middleware(d.set.Webhook(), webhookKey,
		ratelimit.WithOnLimitReached(writeLimited),
	)).Post("/webhooks/{source}", h.webhook)

	r.Post("/mail/{protocol}/auth", h.mailAuth)

	if d.adminToken != "" {
		r.Route("/admin", func(r chi.Router) {
			r.Use(bearerAuth(d.adminToken))
			r.Get("/limits", h.consumers)
			r.Get("/limits/{consumer}/{identifier}", h.limitStatus)
			r.Delete("/limits/{consumer}/{identifier}", h.limitClear)
			r.Delete("/mail/{protocol}/{account}", h.mailClear)
		})
	}

	return r
}

// knownKey keys requests by header only when its value is one of keys, so
// clients cannot mint identifiers by sending arbitrary values.
func knownKey(header string, keys []string) ratelimit.KeyFunc {
	known := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			known[k] = struct{}{}
		}
	}
	byHeader := ratelimit.HeaderKey(header)
	return func(r *http.Request) string {
		if _, ok := known[strings.TrimSpace(r.Header.Get(header))]; !ok {
			return ""
		}
		return byHeader(r)
	}
}

// webhookKey limits each webhook source separately.
func webhookKey(r *http.Request) string {
	if source := chi.URLParam(r, "source"); source != "" {
		return "webhook:" + source
	}
	return ""
}
