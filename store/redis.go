package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// compareAndSwapLua replaces KEYS[1] when its value matches the expectation.
// ARGV[1] = "1" when the key must be absent, "0" otherwise
// ARGV[2] = expected value
// ARGV[3] = new value
// ARGV[4] = ttl in milliseconds, 0 keeps the current TTL
//
// Returns 1 when the swap happened, 0 otherwise.
var compareAndSwapLua = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if ARGV[1] == '1' then
  if cur then
    return 0
  end
else
  if not cur or cur ~= ARGV[2] then
    return 0
  end
end

local ttl = tonumber(ARGV[4])
if ttl > 0 then
  redis.call('SET', KEYS[1], ARGV[3], 'PX', ttl)
else
  redis.call('SET', KEYS[1], ARGV[3], 'KEEPTTL')
end
return 1
`)

// compareAndDeleteLua deletes KEYS[1] only when it holds ARGV[1].
var compareAndDeleteLua = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur and cur == ARGV[1] then
  redis.call('DEL', KEYS[1])
  return 1
end
return 0
`)

// Redis is a [TimedKeyStore] shared by every process connected to the same
// Redis deployment. Expiry is delegated to Redis TTLs.
type Redis struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedis creates a Redis-backed store. Keys are written as prefix:key;
// an empty prefix defaults to "gc".
func NewRedis(redisClient redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "gc"
	}
	return &Redis{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *Redis) key(key string) string {
	return s.prefix + ":" + key
}

// Get implements [TimedKeyStore.Get].
func (s *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

// Put implements [TimedKeyStore.Put].
func (s *Redis) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := validateWrite(value, ttl); err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete implements [TimedKeyStore.Delete].
func (s *Redis) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// CompareAndSwap implements [TimedKeyStore.CompareAndSwap].
func (s *Redis) CompareAndSwap(ctx context.Context, key string, old, next []byte, ttl time.Duration) (bool, error) {
	if next == nil {
		return false, ErrNilValue
	}
	absent := "0"
	if old == nil {
		if ttl <= 0 {
			return false, ErrInvalidTTL
		}
		absent = "1"
	}
	ttlMs := int64(0)
	if ttl > 0 {
		ttlMs = ttl.Milliseconds()
		if ttlMs == 0 {
			ttlMs = 1
		}
	}

	swapped, err := compareAndSwapLua.Run(ctx, s.redis,
		[]string{s.key(key)},
		absent,
		string(old),
		string(next),
		ttlMs,
	).Int()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return swapped == 1, nil
}

// CompareAndDelete implements [TimedKeyStore.CompareAndDelete].
func (s *Redis) CompareAndDelete(ctx context.Context, key string, old []byte) (bool, error) {
	deleted, err := compareAndDeleteLua.Run(ctx, s.redis,
		[]string{s.key(key)},
		string(old),
	).Int()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return deleted == 1, nil
}

// Ping checks Redis connectivity.
func (s *Redis) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
