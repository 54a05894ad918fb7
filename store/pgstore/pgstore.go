// Package pgstore implements store.TimedKeyStore on a PostgreSQL table through
// pgx. It lets deployments that already run PostgreSQL share OTP and
// failed-attempt state across instances without a Redis dependency.
//
// Expiry is evaluated with the database clock so every instance agrees on
// liveness. Expired rows stay invisible to reads until Sweep deletes them.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goCred/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema holds the statements that create the backing table and its expiry index.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS gocred_timed_keys (
        key        TEXT PRIMARY KEY,
        value      BYTEA NOT NULL,
        expires_at TIMESTAMPTZ NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS gocred_timed_keys_expires_at_idx ON gocred_timed_keys (expires_at)`,
}

const (
	getQuery = `
        SELECT value FROM gocred_timed_keys
        WHERE key = $1 AND expires_at > now()
    `
	putQuery = `
        INSERT INTO gocred_timed_keys (key, value, expires_at)
        VALUES ($1, $2, now() + $3::bigint * interval '1 millisecond')
        ON CONFLICT (key) DO UPDATE SET
            value = EXCLUDED.value,
            expires_at = EXCLUDED.expires_at
    `
	deleteQuery = `DELETE FROM gocred_timed_keys WHERE key = $1`

	insertIfAbsentQuery = `
        INSERT INTO gocred_timed_keys (key, value, expires_at)
        VALUES ($1, $2, now() + $3::bigint * interval '1 millisecond')
        ON CONFLICT (key) DO UPDATE SET
            value = EXCLUDED.value,
            expires_at = EXCLUDED.expires_at
        WHERE gocred_timed_keys.expires_at <= now()
    `
	swapQuery = `
        UPDATE gocred_timed_keys SET
            value = $3,
            expires_at = CASE WHEN $4::bigint > 0
                THEN now() + $4::bigint * interval '1 millisecond'
                ELSE expires_at END
        WHERE key = $1 AND value = $2 AND expires_at > now()
    `
	compareDeleteQuery = `
        DELETE FROM gocred_timed_keys
        WHERE key = $1 AND value = $2 AND expires_at > now()
    `
	sweepQuery = `DELETE FROM gocred_timed_keys WHERE expires_at <= now()`
)

// DB is the subset of pgxpool.Pool, pgx.Conn and pgx.Tx used by [Store].
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a PostgreSQL-backed store.TimedKeyStore.
type Store struct {
	db DB
}

// New creates a Store over db. Call EnsureSchema once before use unless the
// table is managed by migrations.
func New(db DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the table and index when they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range Schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
	}
	return nil
}

// Get implements store.TimedKeyStore.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(ctx, getQuery, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return value, nil
}

// Put implements store.TimedKeyStore.
func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if value == nil {
		return store.ErrNilValue
	}
	if ttl <= 0 {
		return store.ErrInvalidTTL
	}
	if _, err := s.db.Exec(ctx, putQuery, key, value, ttlMillis(ttl)); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// Delete implements store.TimedKeyStore.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, deleteQuery, key); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// CompareAndSwap implements store.TimedKeyStore. The conditional UPDATE and
// the conditional upsert are single statements, so row locking provides the
// atomicity.
func (s *Store) CompareAndSwap(ctx context.Context, key string, old, next []byte, ttl time.Duration) (bool, error) {
	if next == nil {
		return false, store.ErrNilValue
	}

	var (
		tag pgconn.CommandTag
		err error
	)
	if old == nil {
		if ttl <= 0 {
			return false, store.ErrInvalidTTL
		}
		tag, err = s.db.Exec(ctx, insertIfAbsentQuery, key, next, ttlMillis(ttl))
	} else {
		var ms int64
		if ttl > 0 {
			ms = ttlMillis(ttl)
		}
		tag, err = s.db.Exec(ctx, swapQuery, key, old, next, ms)
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return tag.RowsAffected() == 1, nil
}

// CompareAndDelete implements store.TimedKeyStore.
func (s *Store) CompareAndDelete(ctx context.Context, key string, old []byte) (bool, error) {
	tag, err := s.db.Exec(ctx, compareDeleteQuery, key, old)
	if err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Sweep deletes expired rows and reports how many were removed.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	tag, err := s.db.Exec(ctx, sweepQuery)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}

// Ping checks connectivity when the underlying DB supports it.
func (s *Store) Ping(ctx context.Context) error {
	p, ok := s.db.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func ttlMillis(ttl time.Duration) int64 {
	ms := ttl.Milliseconds()
	if ms == 0 {
		ms = 1
	}
	return ms
}

var (
	_ store.TimedKeyStore = (*Store)(nil)
	_ store.Sweeper       = (*Store)(nil)
	_ store.Pinger        = (*Store)(nil)
)
