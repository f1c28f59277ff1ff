package tokengate

import "errors"

var (
	// ErrInvalidCredentials is an exported constant or variable used by the token lifecycle engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is an exported constant or variable used by the token lifecycle engine.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountInactive is an exported constant or variable used by the token lifecycle engine.
	ErrAccountInactive = errors.New("account inactive")
	// ErrAccountDisabled is an exported constant or variable used by the token lifecycle engine.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAccountDeleted is an exported constant or variable used by the token lifecycle engine.
	ErrAccountDeleted = errors.New("account deleted")
	// ErrDependencyUnavailable is an exported constant or variable used by the token lifecycle engine.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrTokenMalformed is an exported constant or variable used by the token lifecycle engine.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrInvalidSignature is an exported constant or variable used by the token lifecycle engine.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrTokenExpired is an exported constant or variable used by the token lifecycle engine.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenWrongType is an exported constant or variable used by the token lifecycle engine.
	ErrTokenWrongType = errors.New("token type mismatch")
	// ErrTokenRevoked is an exported constant or variable used by the token lifecycle engine.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrRefreshReuse is an exported constant or variable used by the token lifecycle engine.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
	// ErrEngineNotReady is an exported constant or variable used by the token lifecycle engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
