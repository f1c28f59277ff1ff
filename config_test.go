package tokengate

import (
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.PrivateKey = make([]byte, 64)
	cfg.JWT.PublicKey = make([]byte, 32)
	return cfg
}

func TestConfigValidateTable(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with keys valid",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "jwt leeway valid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 45 * time.Second
			},
			wantValid: true,
		},
		{
			name: "jwt leeway invalid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "jwt signing hs256 valid",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "hs256"
			},
			wantValid: true,
		},
		{
			name: "jwt signing invalid",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "rs256"
			},
			wantValid: false,
		},
		{
			name: "access ttl zero invalid",
			mutate: func(c *Config) {
				c.JWT.AccessTTL = 0
			},
			wantValid: false,
		},
		{
			name: "refresh ttl below access invalid",
			mutate: func(c *Config) {
				c.JWT.RefreshTTL = c.JWT.AccessTTL
			},
			wantValid: false,
		},
		{
			name: "verify keys without keyid invalid",
			mutate: func(c *Config) {
				c.JWT.VerifyKeys = map[string][]byte{"k1": make([]byte, 32)}
			},
			wantValid: false,
		},
		{
			name: "verify keys with keyid valid",
			mutate: func(c *Config) {
				c.JWT.KeyID = "k1"
				c.JWT.VerifyKeys = map[string][]byte{"k1": c.JWT.PublicKey}
			},
			wantValid: true,
		},
		{
			name: "lockout max attempts zero invalid",
			mutate: func(c *Config) {
				c.Lockout.MaxAttempts = 0
			},
			wantValid: false,
		},
		{
			name: "lockout disabled skips lockout checks",
			mutate: func(c *Config) {
				c.Lockout.Enabled = false
				c.Lockout.MaxAttempts = 0
			},
			wantValid: true,
		},
		{
			name: "subject epoch ttl below refresh ttl invalid",
			mutate: func(c *Config) {
				c.Revocation.SubjectEpochTTL = time.Hour
			},
			wantValid: false,
		},
		{
			name: "subject epoch ttl covering refresh ttl valid",
			mutate: func(c *Config) {
				c.Revocation.SubjectEpochTTL = 48 * time.Hour
			},
			wantValid: true,
		},
		{
			name: "verifier timeout zero invalid",
			mutate: func(c *Config) {
				c.Verifier.Timeout = 0
			},
			wantValid: false,
		},
		{
			name: "audit enabled needs buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation failure")
			}
		})
	}
}

func TestConfigProductionModeHardening(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults pass",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "access ttl too long",
			mutate: func(c *Config) {
				c.JWT.AccessTTL = time.Hour
			},
			wantValid: false,
		},
		{
			name: "refresh ttl too long",
			mutate: func(c *Config) {
				c.JWT.RefreshTTL = 60 * 24 * time.Hour
			},
			wantValid: false,
		},
		{
			name: "short hs256 key rejected",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "hs256"
				c.JWT.PrivateKey = []byte("short")
			},
			wantValid: false,
		},
		{
			name: "lockout must stay enabled",
			mutate: func(c *Config) {
				c.Lockout.Enabled = false
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			cfg.Security.ProductionMode = true
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation failure")
			}
		})
	}
}

func TestCloneConfigIsolatesKeyMaterial(t *testing.T) {
	cfg := validTestConfig()
	cfg.JWT.KeyID = "k1"
	cfg.JWT.VerifyKeys = map[string][]byte{"k1": {1, 2, 3}}

	clone := cloneConfig(cfg)

	cfg.JWT.PrivateKey[0] = 0xFF
	cfg.JWT.VerifyKeys["k1"][0] = 0xFF

	if clone.JWT.PrivateKey[0] == 0xFF {
		t.Fatal("clone shares private key backing array")
	}
	if clone.JWT.VerifyKeys["k1"][0] == 0xFF {
		t.Fatal("clone shares verify key backing array")
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := defaultConfig()

	if cfg.JWT.AccessTTL != 15*time.Minute {
		t.Fatalf("access ttl = %s", cfg.JWT.AccessTTL)
	}
	if cfg.JWT.RefreshTTL != 24*time.Hour {
		t.Fatalf("refresh ttl = %s", cfg.JWT.RefreshTTL)
	}
	if cfg.JWT.SigningMethod != "ed25519" {
		t.Fatalf("signing method = %q", cfg.JWT.SigningMethod)
	}
	if !cfg.Lockout.Enabled || cfg.Lockout.MaxAttempts != 5 || cfg.Lockout.LockDuration != 15*time.Minute {
		t.Fatalf("unexpected lockout defaults %+v", cfg.Lockout)
	}
	if cfg.Revocation.RedisPrefix != "tg" {
		t.Fatalf("redis prefix = %q", cfg.Revocation.RedisPrefix)
	}
	if cfg.Verifier.Timeout != 5*time.Second {
		t.Fatalf("verifier timeout = %s", cfg.Verifier.Timeout)
	}
}
