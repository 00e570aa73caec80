// Package ratelimit is a fixed-window rate limiting engine with escalating
// lockouts, periodic cleanup and an explicit fail-open / fail-closed policy.
//
// A single MemoryStore holds one Table per consumer namespace. A Limiter
// evaluates a Policy (an ordered list of windows plus an optional lockout)
// against its table:
//
//	store := ratelimit.NewMemoryStore()
//	defer store.Close()
//
//	api, err := ratelimit.New(store.Table("api"), ratelimit.APIPolicy(),
//	    ratelimit.WithLogger(log),
//	)
//	if err != nil {
//	    return err
//	}
//	go api.Sweeper().Run(ctx)
//
//	if d := api.Check(ctx, "ip:203.0.113.7"); !d.Allowed {
//	    return d.Err() // *BlockedError, matches ErrRateLimited or ErrLocked
//	}
//	api.Record(ctx, "ip:203.0.113.7")
//
// Check and Record are separate calls and not atomic together: concurrent
// requests for one identifier can overshoot a window by the number in flight.
// Check installs the lockout when a window is exceeded and the policy has one.
//
// # Windows
//
// Every window is a fixed interval starting at the first attempt. Once
// now-start reaches the window duration the next Record starts a new window
// at zero. Windows are conjunctive: exceeding any blocks the identifier.
//
// # Store failures
//
// A nil Table, or any table of a closed MemoryStore, is unavailable: reads
// report nothing and writes fail with ErrStoreUnavailable. Limiters turn
// that into a decision by Policy.FailMode and log the outage once.
//
// # Authentication
//
// AuthLimiter counts failed mail logins per protocol. Reaching the threshold
// locks the account out of that protocol only, for the policy TTL:
//
//	auth, _ := ratelimit.NewAuthLimiter(store.Tables(), ratelimit.MailAuthPolicy())
//	if _, err := auth.CheckAttempt(ctx, ratelimit.ProtocolIMAP, id); err != nil {
//	    return err
//	}
//
// # HTTP
//
// Middleware applies a Limiter to a handler chain, answering 429 with
// Retry-After and X-RateLimit-* headers taken from the most restrictive window.
package ratelimit
