package goCred

import (
	"context"
	"errors"
	"fmt"
	"time"

	internalaudit "github.com/MrEthical07/goCred/internal/audit"
	"github.com/MrEthical07/goCred/internal/janitor"
	"github.com/MrEthical07/goCred/internal/l10n"
	"github.com/MrEthical07/goCred/internal/rate"
	"github.com/MrEthical07/goCred/jwt"
	"github.com/MrEthical07/goCred/otp"
	"github.com/MrEthical07/goCred/password"
	"github.com/MrEthical07/goCred/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder defines a public type used by goCred APIs.
//
// Builder instances are intended to be configured during initialization and
// used for exactly one Build call.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	otpStore  store.TimedKeyStore
	rateStore store.TimedKeyStore

	dispatcher   otp.Dispatcher
	userProvider UserProvider
	auditSink    AuditSink
	logger       zerolog.Logger
	now          func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
	}
}

// WithConfig replaces the whole configuration. The value is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis makes Build create a shared Redis store for OTP challenges and
// failed-attempt records unless explicit stores are supplied.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore uses s for both OTP challenges and failed-attempt records.
func (b *Builder) WithStore(s store.TimedKeyStore) *Builder {
	b.otpStore = s
	b.rateStore = s
	return b
}

// WithOTPStore overrides the store for OTP challenges only.
func (b *Builder) WithOTPStore(s store.TimedKeyStore) *Builder {
	b.otpStore = s
	return b
}

// WithRateLimitStore overrides the store for failed-attempt records only.
func (b *Builder) WithRateLimitStore(s store.TimedKeyStore) *Builder {
	b.rateStore = s
	return b
}

// WithDispatcher sets the notification dispatcher used by SendOTP. Without
// one, SendOTP fails with ErrServiceUnavailable.
func (b *Builder) WithDispatcher(d Dispatcher) *Builder {
	b.dispatcher = d
	return b
}

// WithUserProvider enables RefreshTokens.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithAuditSink sets the sink used when Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. The default discards everything.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the clock used for OTP expiry, rate limit windows,
// token timestamps and the default in-memory store.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the dispatch latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the configuration, resolves stores (explicit stores, then
// Redis, then a process-local memory store) and wires every component. A
// Builder can be built once. The janitor does not run until Engine.Start.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- STORES --------
	var shared store.TimedKeyStore
	switch {
	case b.redis != nil:
		shared = store.NewRedis(b.redis, cfg.Store.RedisPrefix)
	default:
		shared = store.NewMemory(store.WithClock(now))
	}
	otpStore := b.otpStore
	if otpStore == nil {
		otpStore = shared
	}
	rateStore := b.rateStore
	if rateStore == nil {
		rateStore = shared
	}

	engine := &Engine{
		config:       cloneConfig(cfg),
		logger:       b.logger,
		userProvider: b.userProvider,
		otpStore:     otpStore,
		rateStore:    rateStore,
		metrics:      NewMetrics(cfg.Metrics),
	}

	// -------- CREDENTIALS --------
	hasher, err := password.NewBcrypt(cfg.Password.BcryptCost)
	if err != nil {
		return nil, err
	}
	engine.passwordHash = hasher
	engine.passwordPolicy = cfg.passwordPolicy()

	// -------- TOKENS --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	// -------- OTP --------
	var dispatcher otp.Dispatcher
	if b.dispatcher != nil {
		dispatcher = &instrumentedDispatcher{next: b.dispatcher, engine: engine}
	}
	var otpOpts []otp.Option
	if cfg.OTP.LocalizeMessages {
		catalog, err := l10n.New(b.logger)
		if err != nil {
			return nil, fmt.Errorf("load message catalogs: %w", err)
		}
		otpOpts = append(otpOpts, otp.WithMessageFunc(func(ctx context.Context, channel otp.Channel, purpose, code string, expiry time.Duration) string {
			return catalog.OTPMessage(ctx, string(channel), purpose, code, expiry)
		}))
	}
	om, err := otp.NewManager(otpStore, dispatcher, otp.Config{
		Length:          cfg.OTP.Length,
		Expiry:          cfg.OTP.Expiry,
		MaxAttempts:     cfg.OTP.MaxAttempts,
		Retention:       cfg.OTP.Retention,
		DispatchTimeout: cfg.OTP.DispatchTimeout,
		Prefix:          cfg.OTP.KeyPrefix,
		Now:             now,
	}, otpOpts...)
	if err != nil {
		return nil, err
	}
	engine.otp = om

	// -------- RATE LIMIT --------
	engine.rateLimiter = rate.New(rateStore, rate.Config{
		Default: rate.Policy{
			MaxAttempts: cfg.RateLimit.MaxAttempts,
			Window:      cfg.RateLimit.Window,
		},
		Prefix: cfg.RateLimit.KeyPrefix,
		Now:    now,
	})

	// -------- JANITOR --------
	// Built even when disabled so SweepExpired has something to run; only
	// Engine.Start schedules it.
	interval := cfg.Janitor.Interval
	if interval <= 0 {
		interval = defaultJanitorInterval
	}
	j, err := janitor.New(janitor.Config{
		Interval: interval,
		Logger:   b.logger.With().Str("component", "janitor").Logger(),
		OnSweep: func(_ string, removed int) {
			engine.metrics.Add(MetricJanitorEvicted, uint64(removed))
		},
	}, sweepTargets(otpStore, rateStore)...)
	if err != nil {
		return nil, fmt.Errorf("create janitor: %w", err)
	}
	engine.janitor = j

	// -------- AUDIT --------
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return engine, nil
}

// sweepTargets returns one target per distinct store that needs sweeping.
// Stores with native expiry (Redis) do not implement store.Sweeper.
func sweepTargets(otpStore, rateStore store.TimedKeyStore) []janitor.Target {
	var targets []janitor.Target
	if s, ok := otpStore.(store.Sweeper); ok {
		targets = append(targets, janitor.Target{Name: "otp", Sweeper: s})
	}
	if s, ok := rateStore.(store.Sweeper); ok && rateStore != otpStore {
		targets = append(targets, janitor.Target{Name: "rate limit", Sweeper: s})
	}
	return targets
}
