// Package auth provides the authentication core for a multi-tenant waste
// collection coordination service: credential storage, dual-secret JWT
// issuance, rotating refresh sessions, and password reset flows.
//
// Token model:
//   - Access and refresh tokens are signed with independent secrets and
//     carry disjoint claim sets. Access tokens embed email and account type
//     so handlers authorize without a lookup; refresh tokens carry only the
//     subject and a session jti.
//   - Every refresh token maps to a refresh_sessions row keyed by jti that
//     stores a sha256 digest of the token, never the token itself. Rotation
//     revokes the old row and mints a new one; presenting a revoked or
//     mismatched token revokes every session the user holds.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter describing login,
//     refresh, reuse detection, and password reset events. Sinks run
//     best-effort (errors are logged) so you can forward to a database or
//     queue without blocking authentication.
package auth
