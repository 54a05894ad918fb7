package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goCred/internal"
	"github.com/MrEthical07/goCred/store"
)

const maxRetries = 16

// Dispatcher delivers a rendered message to a destination over a channel.
// Implementations must return a non-nil error on any delivery failure and
// honour ctx cancellation.
type Dispatcher interface {
	Send(ctx context.Context, channel Channel, destination, message string) error
}

// ChannelSupporter is implemented by dispatchers that only serve some channels.
type ChannelSupporter interface {
	Supports(channel Channel) bool
}

// MessageFunc renders the human-readable notification for a code.
type MessageFunc func(ctx context.Context, channel Channel, purpose, code string, expiry time.Duration) string

// Config holds OTP tuning parameters.
type Config struct {
	Length      int
	Expiry      time.Duration
	MaxAttempts int
	// Retention keeps expired records readable so verification can report
	// ErrExpired instead of ErrNotFound. The store TTL is Expiry+Retention.
	Retention       time.Duration
	DispatchTimeout time.Duration
	// Prefix namespaces challenge keys; defaults to "otp".
	Prefix string
	Now    func() time.Time
}

// SendResult is returned by a successful Send.
type SendResult struct {
	ExpiresIn time.Duration
}

// ExpiresInMinutes returns ExpiresIn in whole minutes.
func (r SendResult) ExpiresInMinutes() int {
	return int(r.ExpiresIn / time.Minute)
}

// Manager issues and verifies one-time codes keyed by (channel, purpose,
// identifier). It is safe for concurrent use.
type Manager struct {
	store      store.TimedKeyStore
	dispatcher Dispatcher
	message    MessageFunc
	config     Config
}

// Option configures a [Manager].
type Option func(*Manager)

// WithMessageFunc overrides the default English message.
func WithMessageFunc(fn MessageFunc) Option {
	return func(m *Manager) {
		if fn != nil {
			m.message = fn
		}
	}
}

// NewManager creates a Manager. A nil dispatcher is allowed; Send then
// fails with ErrUnavailable.
func NewManager(s store.TimedKeyStore, d Dispatcher, cfg Config, opts ...Option) (*Manager, error) {
	if s == nil {
		return nil, errors.New("otp store is required")
	}
	if cfg.Length < internal.MinOTPDigits || cfg.Length > internal.MaxOTPDigits {
		return nil, fmt.Errorf("otp length must be in [%d,%d]", internal.MinOTPDigits, internal.MaxOTPDigits)
	}
	if cfg.Expiry <= 0 {
		return nil, errors.New("otp expiry must be > 0")
	}
	if cfg.MaxAttempts <= 0 || cfg.MaxAttempts > 1<<15 {
		return nil, errors.New("otp max attempts must be in [1,32768]")
	}
	if cfg.Retention < 0 {
		return nil, errors.New("otp retention must be >= 0")
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = 10 * time.Second
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "otp"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	m := &Manager{
		store:      s,
		dispatcher: d,
		message:    DefaultMessage,
		config:     cfg,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// DefaultMessage renders the English notification text.
func DefaultMessage(_ context.Context, _ Channel, purpose, code string, expiry time.Duration) string {
	return fmt.Sprintf("Your %s verification code is %s. It expires in %d minutes.",
		purpose, code, int(expiry/time.Minute))
}

// Generate returns length independent random digits.
func (m *Manager) Generate(length int) (string, error) {
	code, err := internal.NewOTP(length)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return code, nil
}

func (m *Manager) key(channel Channel, purpose, identifier string) string {
	return m.config.Prefix + ":" + string(channel) + ":" + purpose + ":" + identifier
}

func (m *Manager) supports(channel Channel) bool {
	if m.dispatcher == nil {
		return false
	}
	if s, ok := m.dispatcher.(ChannelSupporter); ok {
		return s.Supports(channel)
	}
	return true
}

func normalizePurpose(purpose string) (string, error) {
	purpose = strings.TrimSpace(purpose)
	if purpose == "" || strings.ContainsAny(purpose, ": \t\n") {
		return "", fmt.Errorf("%w: invalid purpose", ErrValidation)
	}
	return purpose, nil
}

// Send issues a fresh code for (identifier, channel, purpose), replacing any
// pending one, and hands the rendered message to the dispatcher with
// Config.DispatchTimeout applied.
//
// Input is validated before anything is written. When the dispatcher cannot
// serve channel, or delivery fails, Send returns ErrUnavailable and the
// challenge pending before the call, if any, is restored.
func (m *Manager) Send(ctx context.Context, identifier string, channel Channel, purpose string) (SendResult, error) {
	identifier, err := NormalizeIdentifier(channel, identifier)
	if err != nil {
		return SendResult{}, err
	}
	purpose, err = normalizePurpose(purpose)
	if err != nil {
		return SendResult{}, err
	}
	if !m.supports(channel) {
		return SendResult{}, fmt.Errorf("%w: no dispatcher for channel %q", ErrUnavailable, channel)
	}

	code, err := m.Generate(m.config.Length)
	if err != nil {
		return SendResult{}, err
	}

	record := &Record{
		CodeHash:  internal.HashSecret(code),
		ExpiresAt: m.config.Now().Add(m.config.Expiry),
	}
	encoded := encodeRecord(record)
	key := m.key(channel, purpose, identifier)

	prior, err := m.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return SendResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		prior = nil
	}

	if err := m.store.Put(ctx, key, encoded, m.config.Expiry+m.config.Retention); err != nil {
		return SendResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, m.config.DispatchTimeout)
	defer cancel()

	msg := m.message(ctx, channel, purpose, code, m.config.Expiry)
	if err := m.dispatcher.Send(dispatchCtx, channel, identifier, msg); err != nil {
		// Use a detached context so a canceled caller still rolls back.
		rollbackCtx, rollbackCancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		m.restore(rollbackCtx, key, encoded, prior)
		rollbackCancel()
		return SendResult{}, fmt.Errorf("%w: dispatch failed: %v", ErrUnavailable, err)
	}

	return SendResult{ExpiresIn: m.config.Expiry}, nil
}

// restore undoes the write of a failed Send. A challenge that was pending
// before it is put back with its remaining lifetime so the code the user
// already holds keeps working; otherwise the new record is removed. Both
// steps only apply while the failed write is still the live value.
func (m *Manager) restore(ctx context.Context, key string, written, prior []byte) {
	if prior != nil {
		if rec, err := decodeRecord(prior); err == nil {
			ttl := rec.ExpiresAt.Add(m.config.Retention).Sub(m.config.Now())
			if ttl > 0 {
				_, _ = m.store.CompareAndSwap(ctx, key, written, prior, ttl)
				return
			}
		}
	}
	_, _ = m.store.CompareAndDelete(ctx, key, written)
}

// Verify checks code against the pending challenge for (identifier, channel,
// purpose).
//
// Outcomes, in order: no record → ErrNotFound; past expiry → record deleted,
// ErrExpired; attempts already at the maximum → record deleted,
// ErrMaxAttempts; mismatch → attempts incremented, *InvalidCodeError; match
// → record deleted, nil. A mismatch that brings attempts to the maximum
// leaves the record in place; the next call deletes it with ErrMaxAttempts.
func (m *Manager) Verify(ctx context.Context, identifier, code string, channel Channel, purpose string) error {
	identifier, err := NormalizeIdentifier(channel, identifier)
	if err != nil {
		return err
	}
	purpose, err = normalizePurpose(purpose)
	if err != nil {
		return err
	}
	key := m.key(channel, purpose, identifier)
	providedHash := internal.HashSecret(strings.TrimSpace(code))

	for i := 0; i < maxRetries; i++ {
		raw, err := m.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		record, err := decodeRecord(raw)
		if err != nil {
			_, _ = m.store.CompareAndDelete(ctx, key, raw)
			return ErrNotFound
		}

		if !m.config.Now().Before(record.ExpiresAt) {
			if _, err := m.store.CompareAndDelete(ctx, key, raw); err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			return ErrExpired
		}

		if int(record.Attempts) >= m.config.MaxAttempts {
			if _, err := m.store.CompareAndDelete(ctx, key, raw); err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			return ErrMaxAttempts
		}

		if subtle.ConstantTimeCompare(record.CodeHash[:], providedHash[:]) != 1 {
			record.Attempts++
			swapped, err := m.store.CompareAndSwap(ctx, key, raw, encodeRecord(record), 0)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			if !swapped {
				continue
			}
			return &InvalidCodeError{Remaining: m.config.MaxAttempts - int(record.Attempts)}
		}

		deleted, err := m.store.CompareAndDelete(ctx, key, raw)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if !deleted {
			continue
		}
		return nil
	}

	return fmt.Errorf("%w: challenge contention", ErrUnavailable)
}

// Discard removes any pending challenge for the key.
func (m *Manager) Discard(ctx context.Context, identifier string, channel Channel, purpose string) error {
	identifier, err := NormalizeIdentifier(channel, identifier)
	if err != nil {
		return err
	}
	purpose, err = normalizePurpose(purpose)
	if err != nil {
		return err
	}
	if err := m.store.Delete(ctx, m.key(channel, purpose, identifier)); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
