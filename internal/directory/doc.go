// Package directory talks to the user-directory backend.
//
// # Session
//
// Session owns the bearer token. It logs in once at startup and then
// re-logs-in on a fixed interval from RefreshLoop. Token replacement is
// guarded so readers never observe a partial update, and a failed login
// leaves the previous token in place.
//
//	session := directory.NewSession(baseURL, user, pass, 6*time.Hour, logger)
//	if err := session.Login(ctx); err != nil { ... }
//	go func() { errCh <- session.RefreshLoop(ctx) }()
//
// A login failure inside RefreshLoop is deliberately fatal: the loop returns
// the error and the process is expected to exit rather than limp along with
// a token of unknown validity.
//
// # Client
//
// Client implements the directory operations on top of Session:
//
//   - LookupByID: user by identifier, nil when absent
//   - LookupByExternalID: user by linked chat identity, nil when absent
//   - CreateUser: one mutation creating the user with the chat identity
//     attribute pre-populated
//   - AddToGroup: group attachment with an explicit backend success flag
//
// # Errors
//
// The backend signals "no such entity" inside its error payload. That
// classification happens exactly once, at the transport boundary in this
// package, and surfaces as the tagged ErrNotFound sentinel (which the lookup
// operations then convert to a nil user). Callers use errors.Is and never
// inspect backend message strings.
package directory
