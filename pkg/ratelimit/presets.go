package ratelimit

import "time"

// Namespaces of the built-in consumers.
const (
	NamespaceAPI     = "api"
	NamespaceSearch  = "search"
	NamespaceWebhook = "webhook"
)

// APIPolicy limits the public HTTP API: 60/min and 1000/hour, 15 minute lockout.
func APIPolicy() Policy {
	return Policy{
		Name: NamespaceAPI,
		Windows: []Window{
			{Duration: time.Minute, Max: 60},
			{Duration: time.Hour, Max: 1000},
		},
		Lockout:         15 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		FailMode:        FailOpen,
	}
}

// SearchPolicy limits live search: 200/min and 4000/hour, 2 minute lockout.
func SearchPolicy() Policy {
	return Policy{
		Name: NamespaceSearch,
		Windows: []Window{
			{Duration: time.Minute, Max: 200},
			{Duration: time.Hour, Max: 4000},
		},
		Lockout:         2 * time.Minute,
		CleanupInterval: 2 * time.Minute,
		FailMode:        FailOpen,
	}
}

// WebhookPolicy limits webhook ingestion: 1000/min without lockout.
func WebhookPolicy() Policy {
	return Policy{
		Name:            NamespaceWebhook,
		Windows:         []Window{{Duration: time.Minute, Max: 1000}},
		CleanupInterval: 2 * time.Minute,
		FailMode:        FailOpen,
	}
}

// MailAuthPolicy locks a mail account out of one protocol for 15 minutes
// after 6 failed authentications.
func MailAuthPolicy() AuthPolicy {
	return AuthPolicy{
		Name:            defaultAuthNamespace,
		Threshold:       defaultAuthThreshold,
		TTL:             defaultAuthTTL,
		CleanupInterval: 5 * time.Minute,
		FailMode:        FailClosed,
	}
}
