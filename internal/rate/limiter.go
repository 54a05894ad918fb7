package rate

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goCred/store"
)

const (
	recordVersionV1 = 1
	recordSize      = 1 + 4 + 8
	maxRetries      = 64
)

// Policy is the attempt budget for one window.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
}

// Config holds rate limiter tuning parameters.
type Config struct {
	Default Policy
	// Prefix namespaces limiter keys; defaults to "rl".
	Prefix string
	Now    func() time.Time
}

// Record is the failed-attempt window for one identifier.
type Record struct {
	Count   int
	ResetAt time.Time
}

// Limiter counts failed attempts per identifier in a fixed window anchored at
// the first failure, and rejects checks once the budget is spent.
type Limiter struct {
	store  store.TimedKeyStore
	config Config
}

// New creates a rate [Limiter] backed by the given store.
func New(s store.TimedKeyStore, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Limiter{
		store:  s,
		config: cfg,
	}
}

func (l *Limiter) key(identifier string) string {
	return l.config.Prefix + ":" + identifier
}

func (l *Limiter) policy(p Policy) Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = l.config.Default.MaxAttempts
	}
	if p.Window <= 0 {
		p.Window = l.config.Default.Window
	}
	return p
}

// Check returns the live record for identifier, or a zero record when none
// exists or its window has passed. It fails with *LimitedError when the
// count has reached p.MaxAttempts. Zero fields in p fall back to the
// configured default.
func (l *Limiter) Check(ctx context.Context, identifier string, p Policy) (Record, error) {
	p = l.policy(p)

	rec, _, err := l.load(ctx, identifier)
	if err != nil {
		return Record{}, err
	}
	now := l.config.Now()
	// The window is [first failure, ResetAt). The store entry expires at
	// ResetAt too, so every backend agrees on the boundary.
	if rec.Count == 0 || !now.Before(rec.ResetAt) {
		return Record{}, nil
	}
	if rec.Count >= p.MaxAttempts {
		return rec, &LimitedError{RetryAfter: rec.ResetAt.Sub(now)}
	}
	return rec, nil
}

// RecordFailure increments the failure count for identifier, opening a new
// window of p.Window when none is live.
func (l *Limiter) RecordFailure(ctx context.Context, identifier string, p Policy) (Record, error) {
	p = l.policy(p)
	key := l.key(identifier)

	for i := 0; i < maxRetries; i++ {
		rec, raw, err := l.load(ctx, identifier)
		if err != nil {
			return Record{}, err
		}

		now := l.config.Now()
		ttl := time.Duration(0)
		if rec.Count == 0 || !now.Before(rec.ResetAt) {
			// Fixed-window semantics: the window starts at the first failure.
			rec = Record{Count: 1, ResetAt: now.Add(p.Window)}
			ttl = p.Window
		} else {
			rec.Count++
		}

		next := encodeRecord(rec)
		var swapped bool
		if raw == nil {
			swapped, err = l.store.CompareAndSwap(ctx, key, nil, next, ttl)
		} else {
			if ttl == 0 {
				// Keep the store TTL aligned with the window end.
				ttl = rec.ResetAt.Sub(now)
			}
			swapped, err = l.store.CompareAndSwap(ctx, key, raw, next, ttl)
		}
		if err != nil {
			return Record{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if swapped {
			return rec, nil
		}
	}

	return Record{}, ErrContention
}

// Clear deletes the record for identifier unconditionally.
func (l *Limiter) Clear(ctx context.Context, identifier string) error {
	if err := l.store.Delete(ctx, l.key(identifier)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Attempts returns the current failure count for identifier.
// Missing or elapsed windows return zero.
func (l *Limiter) Attempts(ctx context.Context, identifier string) (int, error) {
	rec, _, err := l.load(ctx, identifier)
	if err != nil {
		return 0, err
	}
	if !l.config.Now().Before(rec.ResetAt) {
		return 0, nil
	}
	return rec.Count, nil
}

func (l *Limiter) load(ctx context.Context, identifier string) (Record, []byte, error) {
	raw, err := l.store.Get(ctx, l.key(identifier))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Record{}, nil, nil
		}
		return Record{}, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		// Unreadable entries count as an elapsed window; the next write replaces them.
		return Record{}, raw, nil
	}
	return rec, raw, nil
}

func encodeRecord(rec Record) []byte {
	var buf bytes.Buffer
	buf.Grow(recordSize)
	buf.WriteByte(recordVersionV1)
	_ = binary.Write(&buf, binary.BigEndian, uint32(rec.Count))
	_ = binary.Write(&buf, binary.BigEndian, rec.ResetAt.UnixMilli())
	return buf.Bytes()
}

func decodeRecord(data []byte) (Record, error) {
	if len(data) != recordSize || data[0] != recordVersionV1 {
		return Record{}, errors.New("invalid rate limit record")
	}
	count := binary.BigEndian.Uint32(data[1:5])
	resetAt := int64(binary.BigEndian.Uint64(data[5:13]))
	return Record{Count: int(count), ResetAt: time.UnixMilli(resetAt)}, nil
}
