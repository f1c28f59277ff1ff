package tokengate

import (
	"context"
	"time"

	"github.com/ethrwln/tokengate/token"
)

// Introspect returns the read-only validation state of a token of either
// type. It never returns an error for a bad token: Active is false and
// Reason carries the failure class instead, so admin tooling can report on
// malformed or revoked input without error plumbing.
//
// Introspect may return an error when input validation, dependency calls, or security checks fail.
// Introspect does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Introspect(ctx context.Context, tokenStr string) (*TokenInfo, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.Parse(tokenStr)
	if err != nil {
		return &TokenInfo{
			Active: false,
			Reason: string(auditErrorCode(mapTokenError(err))),
		}, nil
	}

	info := &TokenInfo{
		SubjectID: claims.Subject,
		TokenID:   claims.ID,
		TokenType: string(claims.TokenType),
		Roles:     claims.Roles,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}

	revoked, _, err := e.revocations.IsRevoked(ctx, claims.ID, claims.Subject, claims.IssuedAt.Time)
	if err != nil {
		// Fail closed, same as the validation path.
		info.Reason = string(auditErrTokenRevoked)
		return info, nil
	}
	if revoked {
		info.Reason = string(auditErrTokenRevoked)
		return info, nil
	}

	info.Active = true
	return info, nil
}

// Health describes the health operation and its observable behavior.
//
// Health may return an error when input validation, dependency calls, or security checks fail.
// Health does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Health(ctx context.Context) HealthReport {
	if e == nil {
		return HealthReport{}
	}

	report := HealthReport{AuditDropped: e.AuditDropped()}

	if e.redis != nil {
		start := e.clock.Now()
		err := e.redis.Ping(ctx).Err()
		report.RedisLatency = e.clock.Now().Sub(start)
		report.RedisAvailable = err == nil
	}

	return report
}

// TokenTTL returns the configured lifetime for the given token type.
func (e *Engine) TokenTTL(typ string) time.Duration {
	if e == nil || e.tokens == nil {
		return 0
	}
	return e.tokens.TTL(token.Type(typ))
}
