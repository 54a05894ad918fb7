package goCred

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrEthical07/goCred/internal"
	internalaudit "github.com/MrEthical07/goCred/internal/audit"
	"github.com/MrEthical07/goCred/internal/janitor"
	"github.com/MrEthical07/goCred/internal/rate"
	"github.com/MrEthical07/goCred/jwt"
	"github.com/MrEthical07/goCred/otp"
	"github.com/MrEthical07/goCred/password"
	"github.com/MrEthical07/goCred/store"
	"github.com/rs/zerolog"
)

// Engine defines a public type used by goCred APIs.
//
// Engine is a thin facade over independent components (password hashing,
// OTP challenges, tokens, rate limiting, session ids). Components never call
// each other; callers compose them. Engine methods are safe for concurrent
// use once [Builder.Build] returns.
type Engine struct {
	config       Config
	logger       zerolog.Logger
	userProvider UserProvider

	otpStore  store.TimedKeyStore
	rateStore store.TimedKeyStore

	passwordHash   *password.Bcrypt
	passwordPolicy password.Policy
	jwtManager     *jwt.Manager
	otp            *otp.Manager
	rateLimiter    *rate.Limiter
	janitor        *janitor.Janitor
	audit          *internalaudit.Dispatcher
	metrics        *Metrics

	startOnce sync.Once
	closeOnce sync.Once
}

// Start launches the periodic sweep of expired records. It is a no-op when
// the janitor is disabled or already started.
func (e *Engine) Start() {
	if e == nil || e.janitor == nil || !e.config.Janitor.Enabled {
		return
	}
	e.startOnce.Do(e.janitor.Start)
}

// Close describes the close operation and its observable behavior.
//
// Close stops the janitor, cancelling an in-flight sweep, then drains pending
// audit events. It is safe to call more than once.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	var err error
	e.closeOnce.Do(func() {
		if e.janitor != nil {
			err = e.janitor.Shutdown()
		}
		e.audit.Close()
	})
	return err
}

// SweepExpired runs one janitor pass immediately and reports how many
// records were removed. Stores with native expiry contribute nothing. It
// works whether or not the periodic schedule is enabled.
func (e *Engine) SweepExpired(ctx context.Context) (int, error) {
	if e == nil || e.janitor == nil {
		return 0, ErrEngineNotReady
	}
	total, err := e.janitor.RunOnce(ctx)
	if err != nil {
		return total, e.classify("sweep_expired", err)
	}
	return total, nil
}

// Health pings every store that supports it.
func (e *Engine) Health(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	for _, s := range []store.TimedKeyStore{e.otpStore, e.rateStore} {
		p, ok := s.(store.Pinger)
		if !ok {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
		}
	}
	return nil
}

// GenerateSessionID returns a fresh opaque session identifier carrying 256
// bits from the system CSPRNG, encoded as unpadded base64url (43 characters).
// The engine keeps no state about issued ids.
func (e *Engine) GenerateSessionID() (string, error) {
	id, err := internal.NewSessionID()
	if err != nil {
		return "", e.classify("generate_session_id", fmt.Errorf("%w: %v", ErrCrypto, err))
	}
	return id.String(), nil
}

// AuditDropped reports audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns the current in-process metrics.
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

// classify maps component errors onto the root kinds. Outages become
// ErrServiceUnavailable; primitive failures are logged and collapsed to an
// opaque ErrCrypto. Everything else passes through unchanged.
func (e *Engine) classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrCrypto), cryptoFailure(err):
		e.logger.Error().Err(err).Str("op", op).Msg("cryptographic primitive failed")
		return ErrCrypto
	case errors.Is(err, ErrServiceUnavailable):
		return err
	case unavailable(err):
		e.logger.Error().Err(err).Str("op", op).Msg("backend unavailable")
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	default:
		return err
	}
}
