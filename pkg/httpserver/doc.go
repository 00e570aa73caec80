// Package httpserver runs an http.Server with graceful shutdown tied to a
// context.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	err := srv.Run(ctx, router)
//
// Run returns nil once ctx is cancelled and in-flight requests have drained
// within the shutdown timeout. Listen failures are wrapped with ErrStart and
// drain failures with ErrShutdown. Signal handling is left to the caller,
// typically through signal.NotifyContext.
//
// HealthCheckHandler serves JSON liveness and readiness probes built from
// named Check functions.
package httpserver
