package throttle

import (
	"errors"
	"time"

	"github.com/dmitrymomot/gatekeeper/pkg/config"
	"github.com/dmitrymomot/gatekeeper/pkg/ratelimit"
)

// Config holds the limits of every consumer. Defaults match the built-in presets.
type Config struct {
	// PolicyFile optionally points at a YAML file overriding the values below.
	PolicyFile string `env:"RATELIMIT_POLICY_FILE"`

	APIPerMinute       int           `env:"RATELIMIT_API_PER_MINUTE" envDefault:"60"`
	APIPerHour         int           `env:"RATELIMIT_API_PER_HOUR" envDefault:"1000"`
	APILockout         time.Duration `env:"RATELIMIT_API_LOCKOUT" envDefault:"15m"`
	APICleanupInterval time.Duration `env:"RATELIMIT_API_CLEANUP_INTERVAL" envDefault:"5m"`
	APIFailMode        string        `env:"RATELIMIT_API_FAIL_MODE" envDefault:"open"`

	SearchPerMinute       int           `env:"RATELIMIT_SEARCH_PER_MINUTE" envDefault:"200"`
	SearchPerHour         int           `env:"RATELIMIT_SEARCH_PER_HOUR" envDefault:"4000"`
	SearchLockout         time.Duration `env:"RATELIMIT_SEARCH_LOCKOUT" envDefault:"2m"`
	SearchCleanupInterval time.Duration `env:"RATELIMIT_SEARCH_CLEANUP_INTERVAL" envDefault:"2m"`
	SearchFailMode        string        `env:"RATELIMIT_SEARCH_FAIL_MODE" envDefault:"open"`

	WebhookPerMinute       int           `env:"RATELIMIT_WEBHOOK_PER_MINUTE" envDefault:"1000"`
	WebhookLockout         time.Duration `env:"RATELIMIT_WEBHOOK_LOCKOUT" envDefault:"0s"`
	WebhookCleanupInterval time.Duration `env:"RATELIMIT_WEBHOOK_CLEANUP_INTERVAL" envDefault:"2m"`
	WebhookFailMode        string        `env:"RATELIMIT_WEBHOOK_FAIL_MODE" envDefault:"open"`

	MailAuthThreshold       int           `env:"RATELIMIT_MAIL_AUTH_THRESHOLD" envDefault:"6"`
	MailAuthTTL             time.Duration `env:"RATELIMIT_MAIL_AUTH_TTL" envDefault:"15m"`
	MailAuthCleanupInterval time.Duration `env:"RATELIMIT_MAIL_AUTH_CLEANUP_INTERVAL" envDefault:"5m"`
	MailAuthFailMode        string        `env:"RATELIMIT_MAIL_AUTH_FAIL_MODE" envDefault:"closed"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Policies are the resolved policies of every consumer.
type Policies struct {
	API      ratelimit.Policy
	Search   ratelimit.Policy
	Webhook  ratelimit.Policy
	MailAuth ratelimit.AuthPolicy
}

// Policies builds the consumer policies from cfg and applies PolicyFile on top.
func (c Config) Policies() (Policies, error) {
	p := Policies{
		API: ratelimit.Policy{
			Name: ratelimit.NamespaceAPI,
			Windows: []ratelimit.Window{
				{Duration: time.Minute, Max: c.APIPerMinute},
				{Duration: time.Hour, Max: c.APIPerHour},
			},
			Lockout:         c.APILockout,
			CleanupInterval: c.APICleanupInterval,
			FailMode:        ratelimit.FailMode(c.APIFailMode),
		},
		Search: ratelimit.Policy{
			Name: ratelimit.NamespaceSearch,
			Windows: []ratelimit.Window{
				{Duration: time.Minute, Max: c.SearchPerMinute},
				{Duration: time.Hour, Max: c.SearchPerHour},
			},
			Lockout:         c.SearchLockout,
			CleanupInterval: c.SearchCleanupInterval,
			FailMode:        ratelimit.FailMode(c.SearchFailMode),
		},
		Webhook: ratelimit.Policy{
			Name:            ratelimit.NamespaceWebhook,
			Windows:         []ratelimit.Window{{Duration: time.Minute, Max: c.WebhookPerMinute}},
			Lockout:         c.WebhookLockout,
			CleanupInterval: c.WebhookCleanupInterval,
			FailMode:        ratelimit.FailMode(c.WebhookFailMode),
		},
		MailAuth: ratelimit.AuthPolicy{
			Threshold:       c.MailAuthThreshold,
			TTL:             c.MailAuthTTL,
			CleanupInterval: c.MailAuthCleanupInterval,
			FailMode:        ratelimit.FailMode(c.MailAuthFailMode),
		},
	}

	if c.PolicyFile != "" {
		var file PolicyFile
		if err := config.LoadYAML(c.PolicyFile, &file); err != nil {
			return Policies{}, errors.Join(ErrInvalidConfig, err)
		}
		file.apply(&p)
	}

	if err := p.validate(); err != nil {
		return Policies{}, errors.Join(ErrInvalidConfig, err)
	}
	return p, nil
}

func (p Policies) validate() error {
	for _, policy := range []ratelimit.Policy{p.API, p.Search, p.Webhook} {
		if _, err := policy.Validate(); err != nil {
			return err
		}
	}
	_, err := p.MailAuth.Validate()
	return err
}
