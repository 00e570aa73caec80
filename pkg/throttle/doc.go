// Package throttle wires the rate limiting consumers of the service.
//
// A Set owns one ratelimit.MemoryStore and builds on it the API, search and
// webhook limiters plus the mail authentication limiter. Limits come from
// environment variables (see Config) and may be overridden by a YAML file
// named in RATELIMIT_POLICY_FILE:
//
//	cfg, err := throttle.LoadConfig()
//	if err != nil {
//	    return err
//	}
//	set, err := throttle.New(cfg, ratelimit.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer set.Close()
//
//	g.Go(func() error { return set.Run(ctx) })
//
// Run drives one sweeper per namespace and returns when ctx is done.
package throttle
