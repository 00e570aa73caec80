// Package logger builds the service's *slog.Logger.
//
// New wraps a JSON or text handler with LogHandlerDecorator, which appends
// attributes pulled from context.Context (request ids, client ips) on every
// record. Attribute helpers in attr.go keep key names consistent across the
// limiter, the HTTP layer and the mail auth guard:
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "gatekeeperd"),
//	    logger.WithLevelName(cfg.LogLevel),
//	    logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "rate limit lockout engaged",
//	    logger.Namespace("api"),
//	    logger.Identifier("ip:203.0.113.7"),
//	    logger.RetryAfter(15*time.Minute),
//	)
//
// Error and Errors return an empty attribute for nil errors, so they can be
// passed unconditionally.
package logger
