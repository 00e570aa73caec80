// Package mailauth guards SMTP, IMAP and POP3 logins with the failure
// limiter of package ratelimit.
//
//	guard := mailauth.NewGuard(set.MailAuth(), verifier)
//	err := guard.Authenticate(ctx, ratelimit.ProtocolIMAP, user, pass)
//	switch {
//	case errors.Is(err, ratelimit.ErrLocked):
//	    // too many failures for this protocol, retry later
//	case errors.Is(err, mailauth.ErrInvalidCredentials):
//	    // wrong account or password, counted
//	}
//
// MemoryVerifier stores bcrypt hashes and compares unknown accounts against a
// dummy hash, so response time does not reveal which accounts exist.
package mailauth
