// Package auth is a stateless token issuer for username and password
// accounts. It signs HS256 JWTs, stores users with bcrypt hashed passwords
// through a Bun repository, and exposes a go-router request gate that attaches the caller
// Identity to each request.
//
// Token codec:
//   - TokenService issues tokens whose subject is the username and whose
//     expiry is a fixed number of hours after issue. SubjectOf verifies the
//     signature only, IsExpired reports expiry as an outcome rather than an
//     error.
//
// Authentication flow:
//   - Auther implements Login, Register and ListAll over a UserStore. Login
//     failures are typed: ErrClientNotFound for an unknown username and
//     ErrInvalidCredentials for a wrong password. Registration of a taken
//     username returns ErrUserAlreadyExists, which shares the invalid
//     credentials kind.
//   - ListAll returns a lazy, single pass iter.Seq2 backed by a database
//     cursor.
//
// Request gate:
//   - RouteAuthenticator.Gate never rejects a request. A valid bearer token
//     stores an Identity in router locals and in the request context; anything
//     else continues without one. RequireIdentity enforces its presence.
//
// Activity sinks:
//   - ActivitySink receives login and registration events. Sinks run best
//     effort so a failing sink never blocks authentication.
package auth
