package main

import (
	"log/slog"

	"github.com/dmitrymomot/gatekeeper/pkg/httpserver"
	"github.com/dmitrymomot/gatekeeper/pkg/logger"
	"github.com/dmitrymomot/gatekeeper/pkg/requestid"
	"github.com/dmitrymomot/gatekeeper/pkg/throttle"
)

type appConfig struct {
	Env       string `env:"APP_ENV"    envDefault:"development"`
	Service   string `env:"APP_NAME"   envDefault:"gatekeeperd"`
	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`

	// AdminToken enables the /admin routes behind "Authorization: Bearer <token>".
	AdminToken string `env:"ADMIN_TOKEN"`

	// TrustedIPHeaders lists proxy headers carrying the client IP, e.g.
	// "CF-Connecting-IP". Empty keys requests by the TCP peer only.
	TrustedIPHeaders []string `env:"TRUSTED_IP_HEADERS" envSeparator:","`

	// APIKeys are the keys that get their own API budget. Any other
	// X-API-Key is ignored and the request is keyed by client IP.
	APIKeys []string `env:"API_KEYS" envSeparator:","`

	// MailUsers seeds the demo credential store as "account=password,...".
	MailUsers map[string]string `env:"MAIL_USERS" envSeparator:"," envKeyValSeparator:"="`

	HTTP   httpserver.Config
	Limits throttle.Config
}

func newLogger(cfg appConfig) *slog.Logger {
	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env, cfg.Service),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	}
	if cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevelName(cfg.LogLevel))
	}
	if cfg.LogFormat != "" {
		opts = append(opts, logger.WithFormat(logger.Format(cfg.LogFormat)))
	}
	return logger.New(opts...)
}
