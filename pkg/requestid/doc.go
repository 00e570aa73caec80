// Package requestid correlates log records of one HTTP request.
//
// Middleware accepts a client supplied X-Request-ID when it is 1 to 128
// characters of letters, digits, '-' and '_', and otherwise generates a
// UUIDv7. The ID is echoed in the response header and stored in the request
// context, where FromContext reads it.
//
// LoggerExtractor plugs the ID into loggers built by pkg/logger:
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	log.InfoContext(r.Context(), "rate limit cleared")
package requestid
