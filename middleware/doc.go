// Package middleware exposes HTTP middleware adapters for bearer-token
// enforcement built on top of tokengate.Engine validation.
//
// # Guards
//
//   - [Guard] — validates the access token and injects the result.
//   - [RequireRole] — [Guard] plus a role membership check.
//
// Each guard reads the Authorization header, calls Engine.ValidateAccess, and
// injects the validated result into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// authentication logic itself — all decisions are delegated to Engine.ValidateAccess.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject and role membership.
package middleware
