package goCred

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goCred/internal"
	"github.com/MrEthical07/goCred/password"
	"golang.org/x/crypto/bcrypt"
)

// Config is the read-only configuration of an [Engine]: token secrets and
// lifetimes, OTP shape, bcrypt cost and rate limit budget. [Builder.Build]
// validates and copies it; later changes to the caller's value have no effect.
type Config struct {
	JWT       JWTConfig
	Password  PasswordConfig
	OTP       OTPConfig
	RateLimit RateLimitConfig
	Janitor   JanitorConfig
	Store     StoreConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Security  SecurityConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by goCred APIs.
//
// Access and refresh tokens are signed with HS256 under distinct secrets.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by goCred APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	BcryptCost     int
	MinLength      int
	RequireLower   bool
	RequireUpper   bool
	RequireDigit   bool
	RequireSymbol  bool
	Symbols        string
	UpgradeOnLogin bool
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig defines a public type used by goCred APIs.
//
// Retention keeps an expired challenge readable for that long so a late
// verification reports ErrOTPExpired rather than ErrOTPNotFound.
type OTPConfig struct {
	Length          int
	Expiry          time.Duration
	MaxAttempts     int
	Retention       time.Duration
	DispatchTimeout time.Duration
	KeyPrefix       string
	// LocalizeMessages renders notification text from the embedded catalogs
	// using the locale attached with WithLocale.
	LocalizeMessages bool
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig defines a public type used by goCred APIs.
//
// The window is fixed and anchored at the first failure.
type RateLimitConfig struct {
	MaxAttempts int
	Window      time.Duration
	KeyPrefix   string
}

/*
====================================
JANITOR CONFIG
====================================
*/

const defaultJanitorInterval = 5 * time.Minute

// JanitorConfig controls the periodic sweep of expired records.
type JanitorConfig struct {
	Enabled  bool
	Interval time.Duration
}

// StoreConfig controls the store the Builder creates from a Redis client.
type StoreConfig struct {
	RedisPrefix string
}

// AuditConfig defines a public type used by goCred APIs.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goCred APIs.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig defines a public type used by goCred APIs.
//
// ProductionMode turns on the hardening checks in [Config.Validate].
type SecurityConfig struct {
	ProductionMode  bool
	MinSecretLength int
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the documented defaults. JWT secrets are left empty
// and must be supplied.
func DefaultConfig() Config {
	policy := password.DefaultPolicy()
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			BcryptCost:     password.DefaultCost,
			MinLength:      policy.MinLength,
			RequireLower:   policy.RequireLower,
			RequireUpper:   policy.RequireUpper,
			RequireDigit:   policy.RequireDigit,
			RequireSymbol:  policy.RequireSymbol,
			Symbols:        policy.Symbols,
			UpgradeOnLogin: true,
		},
		OTP: OTPConfig{
			Length:          6,
			Expiry:          10 * time.Minute,
			MaxAttempts:     3,
			Retention:       5 * time.Minute,
			DispatchTimeout: 10 * time.Second,
			KeyPrefix:       "otp",
		},
		RateLimit: RateLimitConfig{
			MaxAttempts: 5,
			Window:      15 * time.Minute,
			KeyPrefix:   "rl",
		},
		Janitor: JanitorConfig{
			Enabled:  true,
			Interval: defaultJanitorInterval,
		},
		Store: StoreConfig{
			RedisPrefix: "gc",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProductionMode:  false,
			MinSecretLength: 32,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c *Config) passwordPolicy() password.Policy {
	return password.Policy{
		MinLength:     c.Password.MinLength,
		RequireLower:  c.Password.RequireLower,
		RequireUpper:  c.Password.RequireUpper,
		RequireDigit:  c.Password.RequireDigit,
		RequireSymbol: c.Password.RequireSymbol,
		Symbols:       c.Password.Symbols,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate returns the first violated rule. It does not mutate c.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	if len(c.JWT.AccessSecret) == 0 {
		return errors.New("JWT AccessSecret is required")
	}
	if len(c.JWT.RefreshSecret) == 0 {
		return errors.New("JWT RefreshSecret is required")
	}
	if string(c.JWT.AccessSecret) == string(c.JWT.RefreshSecret) {
		return errors.New("JWT AccessSecret and RefreshSecret must differ")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if c.JWT.Audience != "" && strings.TrimSpace(c.JWT.Audience) == "" {
		return errors.New("JWT Audience must not be blank")
	}
	if c.JWT.Issuer != "" && strings.TrimSpace(c.JWT.Issuer) == "" {
		return errors.New("JWT Issuer must not be blank")
	}

	// Password
	if c.Password.BcryptCost < bcrypt.MinCost || c.Password.BcryptCost > bcrypt.MaxCost {
		return errors.New("Password BcryptCost must be between 4 and 31")
	}
	if c.Password.MinLength < 1 || c.Password.MinLength > password.MaxPasswordBytes {
		return errors.New("Password MinLength must be between 1 and 72")
	}
	if c.Password.RequireSymbol && c.Password.Symbols == "" {
		return errors.New("Password Symbols must be set when RequireSymbol is true")
	}

	// OTP
	if c.OTP.Length < internal.MinOTPDigits || c.OTP.Length > internal.MaxOTPDigits {
		return errors.New("OTP Length must be between 4 and 12")
	}
	if c.OTP.Expiry <= 0 {
		return errors.New("OTP Expiry must be > 0")
	}
	if c.OTP.MaxAttempts <= 0 {
		return errors.New("OTP MaxAttempts must be > 0")
	}
	if c.OTP.Retention < 0 {
		return errors.New("OTP Retention must be >= 0")
	}
	if c.OTP.DispatchTimeout <= 0 {
		return errors.New("OTP DispatchTimeout must be > 0")
	}
	if strings.ContainsAny(c.OTP.KeyPrefix, " :") {
		return errors.New("OTP KeyPrefix must not contain spaces or ':'")
	}

	// Rate limit
	if c.RateLimit.MaxAttempts <= 0 {
		return errors.New("RateLimit MaxAttempts must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("RateLimit Window must be > 0")
	}
	if strings.ContainsAny(c.RateLimit.KeyPrefix, " :") {
		return errors.New("RateLimit KeyPrefix must not contain spaces or ':'")
	}
	if c.RateLimit.KeyPrefix != "" && c.RateLimit.KeyPrefix == c.OTP.KeyPrefix {
		return errors.New("RateLimit KeyPrefix must differ from OTP KeyPrefix")
	}

	// Janitor
	if c.Janitor.Enabled && c.Janitor.Interval <= 0 {
		return errors.New("Janitor Interval must be > 0 when enabled")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}
	if c.Security.MinSecretLength < 0 {
		return errors.New("Security MinSecretLength must be >= 0")
	}

	if c.Security.ProductionMode {
		if len(c.JWT.AccessSecret) < c.Security.MinSecretLength ||
			len(c.JWT.RefreshSecret) < c.Security.MinSecretLength {
			return errors.New("ProductionMode requires JWT secrets of at least MinSecretLength bytes")
		}
		if c.Security.MinSecretLength < 32 {
			return errors.New("ProductionMode requires MinSecretLength >= 32")
		}
		if c.JWT.AccessTTL > 15*time.Minute {
			return errors.New("ProductionMode requires JWT AccessTTL <= 15m")
		}
		if c.JWT.RefreshTTL > 30*24*time.Hour {
			return errors.New("ProductionMode requires JWT RefreshTTL <= 30d")
		}
		if c.Password.BcryptCost < 10 {
			return errors.New("ProductionMode requires Password BcryptCost >= 10")
		}
		if c.Password.MinLength < 8 {
			return errors.New("ProductionMode requires Password MinLength >= 8")
		}
		if c.OTP.Length < 6 {
			return errors.New("ProductionMode requires OTP Length >= 6")
		}
		if c.OTP.Expiry > 15*time.Minute {
			return errors.New("ProductionMode requires OTP Expiry <= 15m")
		}
		if c.OTP.MaxAttempts > 5 {
			return errors.New("ProductionMode requires OTP MaxAttempts <= 5")
		}
		if c.RateLimit.MaxAttempts > 10 {
			return errors.New("ProductionMode requires RateLimit MaxAttempts <= 10")
		}
	}

	return nil
}
