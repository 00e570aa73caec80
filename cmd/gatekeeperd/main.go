package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/gatekeeper/pkg/clientip"
	"github.com/dmitrymomot/gatekeeper/pkg/config"
	"github.com/dmitrymomot/gatekeeper/pkg/httpserver"
	"github.com/dmitrymomot/gatekeeper/pkg/logger"
	"github.com/dmitrymomot/gatekeeper/pkg/mailauth"
	"github.com/dmitrymomot/gatekeeper/pkg/metrics"
	"github.com/dmitrymomot/gatekeeper/pkg/ratelimit"
	"github.com/dmitrymomot/gatekeeper/pkg/throttle"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("gatekeeperd stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := newLogger(cfg)
	logger.SetAsDefault(log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec, err := metrics.NewRecorder(reg)
	if err != nil {
		return err
	}

	set, err := throttle.New(cfg.Limits, ratelimit.WithLogger(log), ratelimit.WithRecorder(rec))
	if err != nil {
		return err
	}
	defer set.Close()

	verifier := mailauth.NewMemoryVerifier()
	for account, password := range cfg.MailUsers {
		if err := verifier.SetPassword(account, password); err != nil {
			return err
		}
	}

	handler := newRouter(routerDeps{
		set:        set,
		guard:      mailauth.NewGuard(set.MailAuth(), verifier, mailauth.WithLogger(log)),
		resolver:   clientip.NewResolver(cfg.TrustedIPHeaders...),
		gatherer:   reg,
		apiKeys:    cfg.APIKeys,
		adminToken: cfg.AdminToken,
		logger:     log,
	})
	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	log.InfoContext(ctx, "gatekeeperd starting",
		slog.Any("consumers", set.Names()),
		slog.Int("sweepers", len(set.Sweepers())),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return set.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx, handler) })
	return g.Wait()
}
