package store

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const memoryShardCount = 32

// MemoryOption configures a [Memory] store.
type MemoryOption func(*Memory)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// Memory is an in-process [TimedKeyStore].
type Memory struct {
	shards [memoryShardCount]memoryShard
	now    func() time.Time
}

type memoryShard struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{now: time.Now}
	for i := range m.shards {
		m.shards[i].items = make(map[string]memoryEntry)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) shard(key string) *memoryShard {
	return &m.shards[xxhash.Sum64String(key)%memoryShardCount]
}

func (e memoryEntry) live(now time.Time) bool {
	return now.Before(e.expiresAt)
}

// Get returns a copy of the live value for key.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := m.shard(key)
	s.mu.RLock()
	entry, ok := s.items[key]
	s.mu.RUnlock()

	if !ok || !entry.live(m.now()) {
		return nil, ErrNotFound
	}
	return bytes.Clone(entry.value), nil
}

// Put stores a copy of value under key.
func (m *Memory) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateWrite(value, ttl); err != nil {
		return err
	}
	s := m.shard(key)
	s.mu.Lock()
	s.items[key] = memoryEntry{value: bytes.Clone(value), expiresAt: m.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// Delete removes key.
func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := m.shard(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// CompareAndSwap implements [TimedKeyStore.CompareAndSwap].
func (m *Memory) CompareAndSwap(ctx context.Context, key string, old, next []byte, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if next == nil {
		return false, ErrNilValue
	}
	if old == nil && ttl <= 0 {
		return false, ErrInvalidTTL
	}

	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := m.now()
	entry, ok := s.items[key]
	present := ok && entry.live(now)

	if old == nil {
		if present {
			return false, nil
		}
		s.items[key] = memoryEntry{value: bytes.Clone(next), expiresAt: now.Add(ttl)}
		return true, nil
	}

	if !present || !bytes.Equal(entry.value, old) {
		return false, nil
	}

	expiresAt := entry.expiresAt
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}
	s.items[key] = memoryEntry{value: bytes.Clone(next), expiresAt: expiresAt}
	return true, nil
}

// CompareAndDelete implements [TimedKeyStore.CompareAndDelete].
func (m *Memory) CompareAndDelete(ctx context.Context, key string, old []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[key]
	if !ok || !entry.live(m.now()) || !bytes.Equal(entry.value, old) {
		return false, nil
	}
	delete(s.items, key)
	return true, nil
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}

// Sweep deletes every expired entry, holding one shard lock at a time.
func (m *Memory) Sweep(ctx context.Context) (int, error) {
	removed := 0
	for i := range m.shards {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		s := &m.shards[i]
		now := m.now()
		s.mu.Lock()
		for key, entry := range s.items {
			if !entry.live(now) {
				delete(s.items, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed, nil
}
