package tokengate

import "time"

type SecurityReport struct {
	ProductionMode   bool
	SigningAlgorithm string
	KeyID            string
	VerifyKeyCount   int
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	Leeway           time.Duration
	LockoutEnabled   bool
	LockoutThreshold int
	LockDuration     time.Duration
	AuditEnabled     bool
	MetricsEnabled   bool
}

func (e *Engine) Report() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		ProductionMode:   e.config.Security.ProductionMode,
		SigningAlgorithm: e.config.JWT.SigningMethod,
		KeyID:            e.config.JWT.KeyID,
		VerifyKeyCount:   len(e.config.JWT.VerifyKeys),
		AccessTTL:        e.config.JWT.AccessTTL,
		RefreshTTL:       e.config.JWT.RefreshTTL,
		Leeway:           e.config.JWT.Leeway,
		LockoutEnabled:   e.config.Lockout.Enabled,
		LockoutThreshold: e.config.Lockout.MaxAttempts,
		LockDuration:     e.config.Lockout.LockDuration,
		AuditEnabled:     e.config.Audit.Enabled,
		MetricsEnabled:   e.config.Metrics.Enabled,
	}
}
