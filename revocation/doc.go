// Package revocation provides blacklist stores that reject tokens before
// their natural expiry.
//
// # Model
//
// Two revocation shapes are tracked: explicit per-token entries keyed by jti,
// and per-subject epoch timestamps that invalidate every token issued at or
// before the epoch. The epoch form bounds store size for "revoke everything
// for this user" to one entry per subject instead of one per outstanding
// token.
//
// # Stores
//
//   - [RedisStore] — SETNX token entries with TTL eviction, Lua-guarded
//     monotonic subject epochs. The production backend.
//   - [MemoryStore] — mutex-guarded maps with a periodic sweep goroutine.
//     Useful for embedding without Redis and for clock-controlled tests.
//
// # Architecture boundaries
//
// This package owns revocation persistence only. It does not parse tokens,
// evaluate expiry, or decide failure semantics — the Engine does. Both stores
// report backend failures as [ErrUnavailable]; the Engine fails closed on the
// validation path.
package revocation
