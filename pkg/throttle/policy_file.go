package throttle

import (
	"time"

	"github.com/dmitrymomot/gatekeeper/pkg/ratelimit"
)

// PolicyFile is the YAML override document. Omitted fields keep the env values.
//
//	api:
//	  windows:
//	    - {duration: 1m, max: 120}
//	    - {duration: 1h, max: 2000}
//	  lockout: 10m
//	webhook:
//	  fail_mode: closed
//	mail_auth:
//	  threshold: 5
//	  ttl: 30m
type PolicyFile struct {
	API      *PolicyOverride `yaml:"api"`
	Search   *PolicyOverride `yaml:"search"`
	Webhook  *PolicyOverride `yaml:"webhook"`
	MailAuth *AuthOverride   `yaml:"mail_auth"`
}

// WindowOverride is one window of a PolicyOverride.
type WindowOverride struct {
	Duration time.Duration `yaml:"duration"`
	Max      int           `yaml:"max"`
}

// PolicyOverride replaces fields of an HTTP consumer policy. A non-empty
// Windows list replaces all windows.
type PolicyOverride struct {
	Windows         []WindowOverride `yaml:"windows"`
	Lockout         *time.Duration   `yaml:"lockout"`
	CleanupInterval *time.Duration   `yaml:"cleanup_interval"`
	FailMode        string           `yaml:"fail_mode"`
}

// AuthOverride replaces fields of the mail authentication policy.
type AuthOverride struct {
	Threshold       *int           `yaml:"threshold"`
	TTL             *time.Duration `yaml:"ttl"`
	CleanupInterval *time.Duration `yaml:"cleanup_interval"`
	FailMode        string         `yaml:"fail_mode"`
}

func (f PolicyFile) apply(p *Policies) {
	f.API.apply(&p.API)
	f.Search.apply(&p.Search)
	f.Webhook.apply(&p.Webhook)
	f.MailAuth.apply(&p.MailAuth)
}

func (o *PolicyOverride) apply(p *ratelimit.Policy) {
	if o == nil {
		return
	}
	if len(o.Windows) > 0 {
		p.Windows = make([]ratelimit.Window, 0, len(o.Windows))
		for _, w := range o.Windows {
			p.Windows = append(p.Windows, ratelimit.Window{Duration: w.Duration, Max: w.Max})
		}
	}
	if o.Lockout != nil {
		p.Lockout = *o.Lockout
	}
	if o.CleanupInterval != nil {
		p.CleanupInterval = *o.CleanupInterval
	}
	if o.FailMode != "" {
		p.FailMode = ratelimit.FailMode(o.FailMode)
	}
}

func (o *AuthOverride) apply(p *ratelimit.AuthPolicy) {
	if o == nil {
		return
	}
	if o.Threshold != nil {
		p.Threshold = *o.Threshold
	}
	if o.TTL != nil {
		p.TTL = *o.TTL
	}
	if o.CleanupInterval != nil {
		p.CleanupInterval = *o.CleanupInterval
	}
	if o.FailMode != "" {
		p.FailMode = ratelimit.FailMode(o.FailMode)
	}
}
