// Package tokengate provides a token lifecycle and account-protection engine:
// JWT access/refresh pairs with rotation, Redis-backed revocation, and
// failed-login lockout.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// tokengate is the public surface. It exposes [Engine], [Builder], [Config], and value types
// (AuthResult, TokenInfo, MetricsSnapshot, etc.). Token signing lives in token/, revocation
// persistence in revocation/, and failed-attempt tracking in lockout/; the engine composes
// them and owns all failure semantics.
//
// Credential storage is deliberately out of scope. Callers plug in a
// [CredentialVerifier]; the engine never sees password hashes and never
// persists account state beyond lockout counters.
//
// # What this package must NOT do
//
//   - Expose Redis clients or store key layouts in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is allocation-only
//     until Build).
//   - Import any sub-package that re-imports tokengate (no import cycles).
//
// # Performance contract
//
// ValidateAccess is the hot path: one parse plus one pipelined revocation
// lookup. Login, Refresh, and Logout are allowed a handful of Redis commands
// per call.
package tokengate
