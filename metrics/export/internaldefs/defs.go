package internaldefs

import (
	tokengate "github.com/ethrwln/tokengate"
)

// CounterDef defines a public type used by tokengate APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   tokengate.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by tokengate APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   tokengate.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the token lifecycle engine.
var CounterDefs = []CounterDef{
	{ID: tokengate.MetricLoginSuccess, Name: "tokengate_login_success_total", Help: "Successful login attempts."},
	{ID: tokengate.MetricLoginFailure, Name: "tokengate_login_failure_total", Help: "Failed login attempts."},
	{ID: tokengate.MetricLoginLocked, Name: "tokengate_login_locked_total", Help: "Login attempts rejected by an active lock."},
	{ID: tokengate.MetricLockoutTriggered, Name: "tokengate_lockout_triggered_total", Help: "Failure-threshold lockouts tripped."},
	{ID: tokengate.MetricRefreshSuccess, Name: "tokengate_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: tokengate.MetricRefreshFailure, Name: "tokengate_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: tokengate.MetricRefreshReuseDetected, Name: "tokengate_refresh_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: tokengate.MetricTokenRevoked, Name: "tokengate_token_revoked_total", Help: "Single-token revocations."},
	{ID: tokengate.MetricSubjectRevoked, Name: "tokengate_subject_revoked_total", Help: "Subject-wide epoch revocations."},
	{ID: tokengate.MetricLogout, Name: "tokengate_logout_total", Help: "Logout operations."},
	{ID: tokengate.MetricValidateSuccess, Name: "tokengate_validate_success_total", Help: "Successful access-token validations."},
	{ID: tokengate.MetricValidateFailure, Name: "tokengate_validate_failure_total", Help: "Failed access-token validations."},
	{ID: tokengate.MetricDependencyFailure, Name: "tokengate_dependency_failure_total", Help: "Backend dependency failures."},
}

// HistogramDefs is an exported constant or variable used by the token lifecycle engine.
var HistogramDefs = []HistogramDef{
	{ID: tokengate.MetricValidateLatency, Name: "tokengate_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the token lifecycle engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the token lifecycle engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
