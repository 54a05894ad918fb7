package goCred

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every variable read by LoadConfig.
const EnvPrefix = "GOCRED"

// LoadOptions controls LoadConfig.
type LoadOptions struct {
	// EnvFiles are loaded with godotenv before the environment is read.
	// Variables already set in the process environment win.
	EnvFiles []string
	// Prefix overrides EnvPrefix.
	Prefix string
}

// LoadConfig builds a Config from DefaultConfig overlaid with GOCRED_*
// environment variables, for example GOCRED_JWT_ACCESS_SECRET,
// GOCRED_OTP_EXPIRY=10m or GOCRED_RATE_LIMIT_MAX_ATTEMPTS=5. The result is
// validated.
func LoadConfig(opts LoadOptions) (Config, error) {
	if len(opts.EnvFiles) > 0 {
		if err := godotenv.Load(opts.EnvFiles...); err != nil {
			return Config{}, fmt.Errorf("load env files: %w", err)
		}
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = EnvPrefix
	}

	def := DefaultConfig()
	v := viper.New()
	v.SetEnvPrefix(prefix)

	defaults := map[string]any{
		"JWT_ACCESS_SECRET":          "",
		"JWT_REFRESH_SECRET":         "",
		"JWT_ACCESS_TTL":             def.JWT.AccessTTL,
		"JWT_REFRESH_TTL":            def.JWT.RefreshTTL,
		"JWT_ISSUER":                 def.JWT.Issuer,
		"JWT_AUDIENCE":               def.JWT.Audience,
		"JWT_LEEWAY":                 def.JWT.Leeway,
		"PASSWORD_BCRYPT_COST":       def.Password.BcryptCost,
		"PASSWORD_MIN_LENGTH":        def.Password.MinLength,
		"PASSWORD_UPGRADE_ON_LOGIN":  def.Password.UpgradeOnLogin,
		"OTP_LENGTH":                 def.OTP.Length,
		"OTP_EXPIRY":                 def.OTP.Expiry,
		"OTP_MAX_ATTEMPTS":           def.OTP.MaxAttempts,
		"OTP_RETENTION":              def.OTP.Retention,
		"OTP_DISPATCH_TIMEOUT":       def.OTP.DispatchTimeout,
		"OTP_KEY_PREFIX":             def.OTP.KeyPrefix,
		"OTP_LOCALIZE_MESSAGES":      def.OTP.LocalizeMessages,
		"RATE_LIMIT_MAX_ATTEMPTS":    def.RateLimit.MaxAttempts,
		"RATE_LIMIT_WINDOW":          def.RateLimit.Window,
		"RATE_LIMIT_KEY_PREFIX":      def.RateLimit.KeyPrefix,
		"JANITOR_ENABLED":            def.Janitor.Enabled,
		"JANITOR_INTERVAL":           def.Janitor.Interval,
		"STORE_REDIS_PREFIX":         def.Store.RedisPrefix,
		"AUDIT_ENABLED":              def.Audit.Enabled,
		"AUDIT_BUFFER_SIZE":          def.Audit.BufferSize,
		"AUDIT_DROP_IF_FULL":         def.Audit.DropIfFull,
		"METRICS_ENABLED":            def.Metrics.Enabled,
		"METRICS_LATENCY_HISTOGRAMS": def.Metrics.EnableLatencyHistograms,
		"SECURITY_PRODUCTION_MODE":   def.Security.ProductionMode,
		"SECURITY_MIN_SECRET_LENGTH": def.Security.MinSecretLength,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := def
	cfg.JWT.AccessSecret = []byte(v.GetString("JWT_ACCESS_SECRET"))
	cfg.JWT.RefreshSecret = []byte(v.GetString("JWT_REFRESH_SECRET"))
	cfg.JWT.AccessTTL = v.GetDuration("JWT_ACCESS_TTL")
	cfg.JWT.RefreshTTL = v.GetDuration("JWT_REFRESH_TTL")
	cfg.JWT.Issuer = v.GetString("JWT_ISSUER")
	cfg.JWT.Audience = v.GetString("JWT_AUDIENCE")
	cfg.JWT.Leeway = v.GetDuration("JWT_LEEWAY")

	cfg.Password.BcryptCost = v.GetInt("PASSWORD_BCRYPT_COST")
	cfg.Password.MinLength = v.GetInt("PASSWORD_MIN_LENGTH")
	cfg.Password.UpgradeOnLogin = v.GetBool("PASSWORD_UPGRADE_ON_LOGIN")

	cfg.OTP.Length = v.GetInt("OTP_LENGTH")
	cfg.OTP.Expiry = v.GetDuration("OTP_EXPIRY")
	cfg.OTP.MaxAttempts = v.GetInt("OTP_MAX_ATTEMPTS")
	cfg.OTP.Retention = v.GetDuration("OTP_RETENTION")
	cfg.OTP.DispatchTimeout = v.GetDuration("OTP_DISPATCH_TIMEOUT")
	cfg.OTP.KeyPrefix = v.GetString("OTP_KEY_PREFIX")
	cfg.OTP.LocalizeMessages = v.GetBool("OTP_LOCALIZE_MESSAGES")

	cfg.RateLimit.MaxAttempts = v.GetInt("RATE_LIMIT_MAX_ATTEMPTS")
	cfg.RateLimit.Window = v.GetDuration("RATE_LIMIT_WINDOW")
	cfg.RateLimit.KeyPrefix = v.GetString("RATE_LIMIT_KEY_PREFIX")

	cfg.Janitor.Enabled = v.GetBool("JANITOR_ENABLED")
	cfg.Janitor.Interval = v.GetDuration("JANITOR_INTERVAL")
	cfg.Store.RedisPrefix = v.GetString("STORE_REDIS_PREFIX")

	cfg.Audit.Enabled = v.GetBool("AUDIT_ENABLED")
	cfg.Audit.BufferSize = v.GetInt("AUDIT_BUFFER_SIZE")
	cfg.Audit.DropIfFull = v.GetBool("AUDIT_DROP_IF_FULL")
	cfg.Metrics.Enabled = v.GetBool("METRICS_ENABLED")
	cfg.Metrics.EnableLatencyHistograms = v.GetBool("METRICS_LATENCY_HISTOGRAMS")

	cfg.Security.ProductionMode = v.GetBool("SECURITY_PRODUCTION_MODE")
	cfg.Security.MinSecretLength = v.GetInt("SECURITY_MIN_SECRET_LENGTH")

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
