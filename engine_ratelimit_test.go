package goCred

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"
)

func TestRateLimitLocksAfterMaxAttempts(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	id := "login:alice@example.com"

	for i := 1; i <= 5; i++ {
		if err := te.CheckRateLimit(ctx, id, 0, 0); err != nil {
			t.Fatalf("check %d: unexpected error %v", i, err)
		}
		status, err := te.RecordFailedAttempt(ctx, id)
		if err != nil {
			t.Fatalf("RecordFailedAttempt %d failed: %v", i, err)
		}
		if status.Count != i {
			t.Fatalf("expected count %d, got %d", i, status.Count)
		}
	}

	err := te.CheckRateLimit(ctx, id, 0, 0)
	var limited *LimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected LimitedError, got %v", err)
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Fatal("LimitedError must match ErrRateLimited")
	}
	if limited.Minutes() != 15 {
		t.Fatalf("expected 15 minutes remaining, got %d", limited.Minutes())
	}
	if StatusCode(err) != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", StatusCode(err))
	}
	if Retryable(err) {
		t.Fatal("rate limit must not be retryable without waiting")
	}
}

func TestRateLimitWindowAnchoredAtFirstFailure(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	id := "otp:+14155550123"

	first, err := te.RecordFailedAttempt(ctx, id)
	if err != nil {
		t.Fatalf("RecordFailedAttempt failed: %v", err)
	}
	for i := 0; i < 4; i++ {
		te.clock.Advance(2 * time.Minute)
		status, err := te.RecordFailedAttempt(ctx, id)
		if err != nil {
			t.Fatalf("RecordFailedAttempt failed: %v", err)
		}
		if !status.ResetAt.Equal(first.ResetAt) {
			t.Fatalf("failure moved the window: %v != %v", status.ResetAt, first.ResetAt)
		}
	}

	// 8 of 15 minutes have passed.
	err = te.CheckRateLimit(ctx, id, 0, 0)
	var limited *LimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected LimitedError, got %v", err)
	}
	if limited.Minutes() != 7 {
		t.Fatalf("expected 7 minutes remaining, got %d", limited.Minutes())
	}

	// Checks do not extend the lockout.
	te.clock.Advance(7*time.Minute + time.Second)
	if err := te.CheckRateLimit(ctx, id, 0, 0); err != nil {
		t.Fatalf("expected window to have reset, got %v", err)
	}
	n, err := te.FailedAttempts(ctx, id)
	if err != nil {
		t.Fatalf("FailedAttempts failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected zero attempts after reset, got %d", n)
	}
}

func TestRateLimitRoundsMinutesUp(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	id := "round-up"

	for i := 0; i < 5; i++ {
		if _, err := te.RecordFailedAttempt(ctx, id); err != nil {
			t.Fatalf("RecordFailedAttempt failed: %v", err)
		}
	}
	te.clock.Advance(14*time.Minute + 50*time.Second)

	var limited *LimitedError
	if err := te.CheckRateLimit(ctx, id, 0, 0); !errors.As(err, &limited) {
		t.Fatalf("expected LimitedError, got %v", err)
	}
	if limited.Minutes() != 1 {
		t.Fatalf("expected 1 minute remaining, got %d", limited.Minutes())
	}
}

func TestClearFailedAttempts(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	id := "clear-me"

	for i := 0; i < 5; i++ {
		if _, err := te.RecordFailedAttempt(ctx, id); err != nil {
			t.Fatalf("RecordFailedAttempt failed: %v", err)
		}
	}
	if err := te.CheckRateLimit(ctx, id, 0, 0); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := te.ClearFailedAttempts(ctx, id); err != nil {
		t.Fatalf("ClearFailedAttempts failed: %v", err)
	}
	if err := te.CheckRateLimit(ctx, id, 0, 0); err != nil {
		t.Fatalf("expected allow after clear, got %v", err)
	}
	if err := te.ClearFailedAttempts(ctx, id); err != nil {
		t.Fatalf("clearing twice should succeed, got %v", err)
	}
}

func TestCheckRateLimitExplicitPolicy(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	id := "explicit"

	status, err := te.RecordFailedAttemptWith(ctx, id, time.Hour)
	if err != nil {
		t.Fatalf("RecordFailedAttemptWith failed: %v", err)
	}
	if got := status.ResetAt.Sub(te.clock.Now()); got != time.Hour {
		t.Fatalf("expected one hour window, got %v", got)
	}
	if _, err := te.RecordFailedAttemptWith(ctx, id, time.Hour); err != nil {
		t.Fatalf("RecordFailedAttemptWith failed: %v", err)
	}

	if err := te.CheckRateLimit(ctx, id, 3, time.Hour); err != nil {
		t.Fatalf("expected allow at 2 of 3, got %v", err)
	}
	if err := te.CheckRateLimit(ctx, id, 2, time.Hour); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected limit at 2 of 2, got %v", err)
	}
}

func TestRateLimitIdentifiersAreIndependent(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := te.RecordFailedAttempt(ctx, "a"); err != nil {
			t.Fatalf("RecordFailedAttempt failed: %v", err)
		}
	}
	if err := te.CheckRateLimit(ctx, "b", 0, 0); err != nil {
		t.Fatalf("unrelated identifier limited: %v", err)
	}
}

func TestRateLimitRejectsBlankIdentifier(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	if err := te.CheckRateLimit(ctx, " ", 0, 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := te.RecordFailedAttempt(ctx, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRecordFailedAttemptConcurrent(t *testing.T) {
	_, rdb := newTestRedis(t)
	te := newTestEngine(t, func(_ *Config, b *Builder) {
		b.WithRedis(rdb)
	})
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := te.RecordFailedAttempt(ctx, "contended"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("RecordFailedAttempt failed: %v", err)
	}

	n, err := te.FailedAttempts(ctx, "contended")
	if err != nil {
		t.Fatalf("FailedAttempts failed: %v", err)
	}
	if n != workers {
		t.Fatalf("expected %d attempts, got %d", workers, n)
	}
}
