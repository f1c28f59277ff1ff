package tokengate

import (
	"context"
	"time"
)

// AccountStatus represents the lifecycle state of a subject's account as
// reported by the credential verifier.
type AccountStatus uint8

const (
	// AccountActive is an exported constant or variable used by the token lifecycle engine.
	AccountActive AccountStatus = iota
	// AccountInactive is an exported constant or variable used by the token lifecycle engine.
	AccountInactive
	// AccountDisabled is an exported constant or variable used by the token lifecycle engine.
	AccountDisabled
	// AccountDeleted is an exported constant or variable used by the token lifecycle engine.
	AccountDeleted
)

// Verification is the outcome of a credential check performed by a
// [CredentialVerifier]. Valid reports whether the secret matched; SubjectID,
// Status, and Roles are only meaningful when Valid is true.
type Verification struct {
	Valid     bool
	SubjectID string
	Status    AccountStatus
	Roles     []string
}

// CredentialVerifier is the interface callers implement to connect the
// engine to their account database. The engine treats it as an opaque
// collaborator: it never stores credentials and never interprets the secret.
//
// An implementation error (timeout, transport failure) surfaces to callers
// as [ErrDependencyUnavailable] and is never counted as a failed attempt.
type CredentialVerifier interface {
	Verify(ctx context.Context, identifier, secret string) (Verification, error)
}

// CredentialVerifierFunc adapts a function to the [CredentialVerifier]
// interface.
type CredentialVerifierFunc func(ctx context.Context, identifier, secret string) (Verification, error)

// Verify describes the verify operation and its observable behavior.
//
// Verify may return an error when input validation, dependency calls, or security checks fail.
// Verify does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (f CredentialVerifierFunc) Verify(ctx context.Context, identifier, secret string) (Verification, error) {
	return f(ctx, identifier, secret)
}

// AuthResult is returned by [Engine.Login], [Engine.Refresh], and
// [Engine.ValidateAccess]. Token fields are empty on validation-only paths.
type AuthResult struct {
	SubjectID string
	Roles     []string

	AccessToken  string
	RefreshToken string

	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenInfo is the read-only introspection result returned by
// [Engine.Introspect]. Active is false when the token failed validation for
// any reason; Reason then carries the failure class.
type TokenInfo struct {
	Active bool
	Reason string

	SubjectID string
	TokenID   string
	TokenType string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// LockInfo reports the lockout state of a subject, returned by
// [Engine.LockStatus].
type LockInfo struct {
	Locked         bool
	FailedAttempts int
	Remaining      time.Duration
}

// HealthReport is a point-in-time dependency check returned by
// [Engine.Health].
type HealthReport struct {
	RedisAvailable bool
	RedisLatency   time.Duration
	AuditDropped   uint64
}

func accountStatusToError(status AccountStatus) error {
	switch status {
	case AccountActive:
		return nil
	case AccountInactive:
		return ErrAccountInactive
	case AccountDisabled:
		return ErrAccountDisabled
	case AccountDeleted:
		return ErrAccountDeleted
	default:
		return ErrAccountDisabled
	}
}
