package rate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goCred/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T) (*Limiter, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := store.NewMemory(store.WithClock(clock.Now))
	l := New(s, Config{
		Default: Policy{MaxAttempts: 5, Window: 15 * time.Minute},
		Now:     clock.Now,
	})
	return l, clock
}

func TestFiveFailuresLockSixthCheck(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if _, err := l.Check(ctx, "alice@example.com", Policy{}); err != nil {
			t.Fatalf("check %d should pass: %v", i, err)
		}
		rec, err := l.RecordFailure(ctx, "alice@example.com", Policy{})
		if err != nil {
			t.Fatalf("record failure %d: %v", i, err)
		}
		if rec.Count != i {
			t.Fatalf("expected count %d, got %d", i, rec.Count)
		}
	}

	_, err := l.Check(ctx, "alice@example.com", Policy{})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	var limited *LimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected *LimitedError, got %T", err)
	}
	if limited.Minutes() != 15 {
		t.Fatalf("expected 15 minutes remaining, got %d", limited.Minutes())
	}
}

func TestRemainingMinutesRoundUp(t *testing.T) {
	l, clock := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = l.RecordFailure(ctx, "u", Policy{})
	}
	clock.Advance(10*time.Minute + 30*time.Second)

	_, err := l.Check(ctx, "u", Policy{})
	var limited *LimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected *LimitedError, got %v", err)
	}
	if limited.Minutes() != 5 {
		t.Fatalf("expected 4.5 minutes to round up to 5, got %d", limited.Minutes())
	}
}

func TestClearResetsCounter(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = l.RecordFailure(ctx, "u", Policy{})
	}
	if err := l.Clear(ctx, "u"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := l.Check(ctx, "u", Policy{}); err != nil {
		t.Fatalf("expected check to pass after clear: %v", err)
	}
	n, _ := l.Attempts(ctx, "u")
	if n != 0 {
		t.Fatalf("expected 0 attempts after clear, got %d", n)
	}
}

func TestWindowAnchoredAtFirstFailure(t *testing.T) {
	l, clock := newTestLimiter(t)
	ctx := context.Background()

	first, _ := l.RecordFailure(ctx, "u", Policy{})
	clock.Advance(10 * time.Minute)
	second, _ := l.RecordFailure(ctx, "u", Policy{})
	if !second.ResetAt.Equal(first.ResetAt) {
		t.Fatalf("later failure moved the window: %v -> %v", first.ResetAt, second.ResetAt)
	}

	clock.Advance(5*time.Minute + time.Second)
	if n, _ := l.Attempts(ctx, "u"); n != 0 {
		t.Fatalf("expected elapsed window to read as zero, got %d", n)
	}
	third, _ := l.RecordFailure(ctx, "u", Policy{})
	if third.Count != 1 {
		t.Fatalf("expected fresh window after pause, got count %d", third.Count)
	}
}

func TestLockoutEndsAtResetTime(t *testing.T) {
	l, clock := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = l.RecordFailure(ctx, "u", Policy{})
	}

	clock.Advance(15*time.Minute - time.Millisecond)
	_, err := l.Check(ctx, "u", Policy{})
	var limited *LimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected lockout just before reset, got %v", err)
	}
	if limited.Minutes() != 1 {
		t.Fatalf("expected 1 minute remaining, got %d", limited.Minutes())
	}

	clock.Advance(time.Millisecond)
	if _, err := l.Check(ctx, "u", Policy{}); err != nil {
		t.Fatalf("expected lockout to end at reset time, got %v", err)
	}
}

func TestPolicyOverride(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()
	strict := Policy{MaxAttempts: 2, Window: time.Minute}

	_, _ = l.RecordFailure(ctx, "u", strict)
	_, _ = l.RecordFailure(ctx, "u", strict)

	if _, err := l.Check(ctx, "u", strict); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected strict policy to lock after 2, got %v", err)
	}
	if _, err := l.Check(ctx, "u", Policy{}); err != nil {
		t.Fatalf("default policy should still allow: %v", err)
	}
}

func TestIdentifiersAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = l.RecordFailure(ctx, "a", Policy{})
	}
	if _, err := l.Check(ctx, "b", Policy{}); err != nil {
		t.Fatalf("unrelated identifier must not be limited: %v", err)
	}
}

func TestConcurrentFailuresAreAllCounted(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := New(store.NewRedis(client, "test"), Config{
		Default: Policy{MaxAttempts: 100, Window: time.Minute},
	})
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.RecordFailure(ctx, "u", Policy{}); err != nil {
				t.Errorf("record failure: %v", err)
			}
		}()
	}
	wg.Wait()

	n, err := l.Attempts(ctx, "u")
	if err != nil {
		t.Fatalf("attempts: %v", err)
	}
	if n != workers {
		t.Fatalf("expected %d attempts, got %d", workers, n)
	}
	if !mr.Exists("test:rl:u") {
		t.Fatal("expected limiter key in redis")
	}
}

func TestLimitedErrorMinutesFloor(t *testing.T) {
	if (&LimitedError{RetryAfter: 0}).Minutes() != 1 {
		t.Fatal("expected minimum of one minute")
	}
	if (&LimitedError{RetryAfter: time.Minute}).Minutes() != 1 {
		t.Fatal("expected exact minute to stay at one")
	}
}
