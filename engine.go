package tokengate

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ethrwln/tokengate/lockout"
	"github.com/ethrwln/tokengate/revocation"
	"github.com/ethrwln/tokengate/token"
)

// Engine defines a public type used by tokengate APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config      Config
	tokens      *token.Manager
	revocations revocation.Store
	lockouts    *lockout.Tracker
	verifier    CredentialVerifier
	clock       Clock
	redis       redis.UniversalClient
	audit       *auditDispatcher
	metrics     *Metrics
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, identifier, secret string) (*AuthResult, error) {
	if e == nil || e.tokens == nil || e.verifier == nil {
		return nil, ErrEngineNotReady
	}

	if e.lockouts != nil {
		locked, err := e.lockouts.IsLocked(ctx, identifier)
		if err != nil {
			e.metricInc(MetricDependencyFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrDependencyUnavailable, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
					"reason":     "lockout_check_failed",
				}
			})
			return nil, ErrDependencyUnavailable
		}
		if locked {
			// Attempts against a locked account are rejected before the
			// verifier runs and never touch the failure counter.
			e.metricInc(MetricLoginLocked)
			e.emitAudit(ctx, auditEventLoginLocked, false, "", "", ErrAccountLocked, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
			return nil, ErrAccountLocked
		}
	}

	if identifier == "" || secret == "" {
		return e.loginFailure(ctx, identifier, "empty_input")
	}

	verifyCtx, cancel := context.WithTimeout(ctx, e.config.Verifier.Timeout)
	verification, err := e.verifier.Verify(verifyCtx, identifier, secret)
	cancel()
	if err != nil {
		// A verifier outage is not evidence about the credentials and must
		// never count toward lockout.
		e.metricInc(MetricDependencyFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrDependencyUnavailable, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "verifier_error",
			}
		})
		return nil, ErrDependencyUnavailable
	}

	if !verification.Valid {
		return e.loginFailure(ctx, identifier, "credential_mismatch")
	}

	if statusErr := accountStatusToError(verification.Status); statusErr != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, verification.SubjectID, "", statusErr, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "account_status",
			}
		})
		return nil, statusErr
	}

	if e.lockouts != nil {
		if err := e.lockouts.RecordSuccess(ctx, identifier); err != nil {
			e.metricInc(MetricDependencyFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, verification.SubjectID, "", ErrDependencyUnavailable, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
					"reason":     "lockout_reset_failed",
				}
			})
			return nil, ErrDependencyUnavailable
		}
	}

	secret = ""

	pair, err := e.tokens.MintPair(verification.SubjectID, verification.Roles)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, verification.SubjectID, "", err, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "mint_failed",
			}
		})
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, verification.SubjectID, pair.AccessClaims.ID, nil, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
		}
	})

	return resultFromPair(pair), nil
}

func (e *Engine) loginFailure(ctx context.Context, identifier, reason string) (*AuthResult, error) {
	if e.lockouts != nil {
		count, tripped, err := e.lockouts.RecordFailure(ctx, identifier)
		if err != nil {
			e.metricInc(MetricDependencyFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrDependencyUnavailable, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
					"reason":     "lockout_record_failed",
				}
			})
			return nil, ErrDependencyUnavailable
		}
		if tripped {
			e.metricInc(MetricLockoutTriggered)
			e.emitAudit(ctx, auditEventLockoutTriggered, false, "", "", ErrAccountLocked, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
					"attempts":   strconv.Itoa(count),
				}
			})
		}
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
			"reason":     reason,
		}
	})
	return nil, ErrInvalidCredentials
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.checkToken(ctx, refreshToken, token.TypeRefresh)
	if err != nil {
		if errors.Is(err, ErrRefreshReuse) {
			// Presenting an already-rotated refresh token is the reuse
			// signal; the metric and audit event fired in checkToken.
			return nil, err
		}
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", err, nil)
		return nil, err
	}

	// Rotation is first-writer-wins on the presented jti: exactly one of any
	// concurrent refreshes creates the revocation entry and mints a pair.
	won, err := e.revocations.RevokeToken(ctx, claims.ID, e.revocationTTL(claims.ExpiresAt.Time), revocation.ReasonRotated)
	if err != nil {
		e.metricInc(MetricDependencyFailure)
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.Subject, claims.ID, ErrDependencyUnavailable, nil)
		return nil, ErrDependencyUnavailable
	}
	if !won {
		e.metricInc(MetricRefreshReuseDetected)
		e.emitAudit(ctx, auditEventRefreshReuseDetected, false, claims.Subject, claims.ID, ErrRefreshReuse, nil)
		return nil, ErrRefreshReuse
	}
	e.metricInc(MetricTokenRevoked)

	// The new pair carries the validated claims' subject and roles. Nothing
	// from the request can widen them.
	pair, err := e.tokens.MintPair(claims.Subject, claims.Roles)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.Subject, claims.ID, err, func() map[string]string {
			return map[string]string{
				"reason": "mint_failed",
			}
		})
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, claims.Subject, pair.AccessClaims.ID, nil, nil)

	return resultFromPair(pair), nil
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	if e == nil || e.tokens == nil {
		return ErrEngineNotReady
	}

	// Expired or otherwise invalid tokens are rejected, not revoked: a dead
	// token needs no blacklist entry, and revoking unvalidated input would
	// let anyone fill the store.
	claims, err := e.checkToken(ctx, accessToken, token.TypeAccess)
	if err != nil {
		e.emitAudit(ctx, auditEventLogout, false, "", "", err, nil)
		return err
	}

	if _, err := e.revocations.RevokeToken(ctx, claims.ID, e.revocationTTL(claims.ExpiresAt.Time), revocation.ReasonLogout); err != nil {
		e.metricInc(MetricDependencyFailure)
		e.emitAudit(ctx, auditEventLogout, false, claims.Subject, claims.ID, ErrDependencyUnavailable, nil)
		return ErrDependencyUnavailable
	}

	e.metricInc(MetricLogout)
	e.metricInc(MetricTokenRevoked)
	e.emitAudit(ctx, auditEventLogout, true, claims.Subject, claims.ID, nil, nil)

	return nil
}

// AdminRevoke describes the adminrevoke operation and its observable behavior.
//
// AdminRevoke may return an error when input validation, dependency calls, or security checks fail.
// AdminRevoke does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AdminRevoke(ctx context.Context, subject, reason string) error {
	if e == nil || e.revocations == nil {
		return ErrEngineNotReady
	}
	if subject == "" {
		return ErrInvalidCredentials
	}
	if reason == "" {
		reason = revocation.ReasonAdmin
	}

	ttl := e.config.Revocation.SubjectEpochTTL
	if ttl <= 0 {
		ttl = e.config.JWT.RefreshTTL
	}

	if err := e.revocations.RevokeSubject(ctx, subject, e.clock.Now(), ttl, reason); err != nil {
		e.metricInc(MetricDependencyFailure)
		e.emitAudit(ctx, auditEventSubjectRevoked, false, subject, "", ErrDependencyUnavailable, nil)
		return ErrDependencyUnavailable
	}

	e.metricInc(MetricSubjectRevoked)
	e.emitAudit(ctx, auditEventSubjectRevoked, true, subject, "", nil, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})

	return nil
}

// ValidateAccess describes the validateaccess operation and its observable behavior.
//
// ValidateAccess may return an error when input validation, dependency calls, or security checks fail.
// ValidateAccess does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ValidateAccess(ctx context.Context, tokenStr string) (*AuthResult, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricValidateLatency, time.Since(start))
		}()
	}

	claims, err := e.checkToken(ctx, tokenStr, token.TypeAccess)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		e.emitAudit(ctx, auditEventValidateFailure, false, "", "", err, nil)
		return nil, err
	}

	e.metricInc(MetricValidateSuccess)

	return &AuthResult{
		SubjectID:       claims.Subject,
		Roles:           claims.Roles,
		AccessExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// LockStatus describes the lockstatus operation and its observable behavior.
//
// LockStatus may return an error when input validation, dependency calls, or security checks fail.
// LockStatus does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LockStatus(ctx context.Context, identifier string) (LockInfo, error) {
	if e == nil {
		return LockInfo{}, ErrEngineNotReady
	}
	if e.lockouts == nil {
		return LockInfo{}, nil
	}

	status, err := e.lockouts.Status(ctx, identifier)
	if err != nil {
		return LockInfo{}, ErrDependencyUnavailable
	}

	return LockInfo{
		Locked:         status.Locked,
		FailedAttempts: status.Failures,
		Remaining:      status.Remaining,
	}, nil
}

// FailedAttempts describes the failedattempts operation and its observable behavior.
//
// FailedAttempts may return an error when input validation, dependency calls, or security checks fail.
// FailedAttempts does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) FailedAttempts(ctx context.Context, identifier string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if e.lockouts == nil {
		return 0, nil
	}

	count, err := e.lockouts.FailureCount(ctx, identifier)
	if err != nil {
		return 0, ErrDependencyUnavailable
	}
	return count, nil
}

// Unlock clears an active lock and failure counter for an identifier.
// Intended for admin-initiated manual unlocks.
func (e *Engine) Unlock(ctx context.Context, identifier string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if e.lockouts == nil {
		return nil
	}
	if err := e.lockouts.RecordSuccess(ctx, identifier); err != nil {
		return ErrDependencyUnavailable
	}
	return nil
}

// revocationTTL returns how long a revocation entry for a token expiring at
// exp must live. Parsing accepts tokens up to Leeway past exp, so the entry
// has to outlive that window too; a token presented inside the leeway would
// otherwise hit the store's expired-TTL no-op and stay replayable.
func (e *Engine) revocationTTL(exp time.Time) time.Duration {
	ttl := exp.Add(e.config.JWT.Leeway).Sub(e.clock.Now())
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

// checkToken runs the full validation pipeline: structural parse, signature,
// expiry, type, then revocation. The revocation check fails closed: a store
// error rejects the token.
func (e *Engine) checkToken(ctx context.Context, tokenStr string, want token.Type) (*token.Claims, error) {
	claims, err := e.tokens.Parse(tokenStr)
	if err != nil {
		return nil, mapTokenError(err)
	}

	if claims.TokenType != want {
		return nil, ErrTokenWrongType
	}

	revoked, reason, err := e.revocations.IsRevoked(ctx, claims.ID, claims.Subject, claims.IssuedAt.Time)
	if err != nil {
		e.metricInc(MetricDependencyFailure)
		return nil, ErrTokenRevoked
	}
	if revoked {
		if reason == revocation.ReasonRotated {
			e.metricInc(MetricRefreshReuseDetected)
			e.emitAudit(ctx, auditEventRefreshReuseDetected, false, claims.Subject, claims.ID, ErrRefreshReuse, nil)
			return nil, ErrRefreshReuse
		}
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrMalformed):
		return ErrTokenMalformed
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrInvalidSignature):
		return ErrInvalidSignature
	default:
		return ErrTokenMalformed
	}
}

func resultFromPair(pair *token.Pair) *AuthResult {
	return &AuthResult{
		SubjectID:        pair.AccessClaims.Subject,
		Roles:            pair.AccessClaims.Roles,
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessClaims.ExpiresAt.Time,
		RefreshExpiresAt: pair.RefreshClaims.ExpiresAt.Time,
	}
}
