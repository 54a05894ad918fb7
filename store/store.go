package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when the key is absent or its TTL has elapsed.
	ErrNotFound = errors.New("store: key not found")
	// ErrUnavailable wraps backend failures (network, driver, script errors).
	ErrUnavailable = errors.New("store: backend unavailable")
	// ErrInvalidTTL is returned when a write that creates a key carries no positive TTL.
	ErrInvalidTTL = errors.New("store: ttl must be positive")
	// ErrNilValue is returned when a write carries a nil value.
	ErrNilValue = errors.New("store: value must not be nil")
)

// TimedKeyStore is a key-value store with per-entry expiry. Implementations
// must be safe for concurrent use. Values handed in and out are owned by the
// caller; implementations copy them where they retain memory.
type TimedKeyStore interface {
	// Get returns the live value for key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key with the given TTL, replacing any prior value.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// CompareAndSwap replaces the value of key with next only when the live
	// value equals old. A nil old means "only if absent". A ttl <= 0 keeps
	// the remaining TTL of the existing entry. It reports whether the swap
	// happened; a false result with nil error means another writer won.
	CompareAndSwap(ctx context.Context, key string, old, next []byte, ttl time.Duration) (bool, error)
	// CompareAndDelete removes key only when its live value equals old.
	CompareAndDelete(ctx context.Context, key string, old []byte) (bool, error)
}

// Sweeper is implemented by stores that do not expire entries on their own
// and need a periodic pass to reclaim expired ones.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

func validateWrite(value []byte, ttl time.Duration) error {
	if value == nil {
		return ErrNilValue
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return nil
}
