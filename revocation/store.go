package revocation

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is an exported constant or variable used by the revocation layer.
var ErrUnavailable = errors.New("revocation store unavailable")

// Common revocation reasons recorded alongside entries. Callers may pass any
// non-empty string; these are the ones the engine emits.
const (
	ReasonLogout  = "logout"
	ReasonRotated = "rotated"
	ReasonAdmin   = "admin"
)

// Store defines a public type used by tokengate APIs. See package documentation for details.
//
// RevokeToken is first-writer-wins: it reports true when this call created
// the entry and false when the jti was already revoked. Callers use that to
// detect concurrent refresh rotation of the same token.
//
// IsRevoked checks both shapes: the explicit jti entry and the subject epoch
// (revoked when issuedAt is not after the stored epoch). It returns the
// recorded reason when revoked.
type Store interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration, reason string) (bool, error)
	RevokeSubject(ctx context.Context, subject string, since time.Time, ttl time.Duration, reason string) error
	IsRevoked(ctx context.Context, jti, subject string, issuedAt time.Time) (bool, string, error)
}
