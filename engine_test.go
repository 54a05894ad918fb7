package goCred

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goCred/store"
)

func TestGenerateSessionID(t *testing.T) {
	te := newTestEngine(t, nil)

	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id, err := te.GenerateSessionID()
		if err != nil {
			t.Fatalf("GenerateSessionID failed: %v", err)
		}
		if len(id) != 43 {
			t.Fatalf("expected 43 characters, got %d (%q)", len(id), id)
		}
		raw, err := base64.RawURLEncoding.DecodeString(id)
		if err != nil {
			t.Fatalf("session id is not base64url: %v", err)
		}
		if len(raw) != 32 {
			t.Fatalf("expected 256 bits, got %d bytes", len(raw))
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithConfig(testConfig())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.RefreshSecret = cfg.JWT.AccessSecret

	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected Build to reject identical secrets")
	}
}

func TestBuilderCopiesSecrets(t *testing.T) {
	cfg := testConfig()
	b := New().WithConfig(cfg)
	cfg.JWT.AccessSecret[0] ^= 0xff

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	pair, err := engine.GenerateTokens(testUser())
	if err != nil {
		t.Fatalf("GenerateTokens failed: %v", err)
	}
	verifier, err := New().WithConfig(testConfig()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer verifier.Close()

	if _, err := verifier.VerifyToken(pair.AccessToken, false); err != nil {
		t.Fatalf("mutating the caller's config leaked into the engine: %v", err)
	}
}

func TestSweepExpired(t *testing.T) {
	te := newTestEngine(t, func(c *Config, _ *Builder) {
		c.Metrics.Enabled = true
	})
	ctx := context.Background()

	if _, err := te.SendOTP(ctx, "judy@example.com", ChannelEmail, testPurpose); err != nil {
		t.Fatalf("SendOTP failed: %v", err)
	}
	if _, err := te.RecordFailedAttempt(ctx, "judy@example.com"); err != nil {
		t.Fatalf("RecordFailedAttempt failed: %v", err)
	}

	n, err := te.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected nothing swept yet, got %d", n)
	}

	// Both the OTP store TTL (expiry plus retention) and the rate window
	// are 15 minutes.
	te.clock.Advance(16 * time.Minute)
	n, err = te.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 swept records, got %d", n)
	}
	if got := te.MetricsSnapshot().Counters[MetricJanitorEvicted]; got != 2 {
		t.Fatalf("expected janitor metric 2, got %d", got)
	}
}

func TestSweepExpiredWithoutSchedule(t *testing.T) {
	te := newTestEngine(t, func(c *Config, _ *Builder) {
		c.Janitor.Enabled = false
		c.Janitor.Interval = 0
		c.Metrics.Enabled = true
	})
	ctx := context.Background()

	te.Start()
	if _, err := te.SendOTP(ctx, "kim@example.com", ChannelEmail, testPurpose); err != nil {
		t.Fatalf("SendOTP failed: %v", err)
	}
	te.clock.Advance(16 * time.Minute)

	n, err := te.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 swept record, got %d", n)
	}
	if got := te.MetricsSnapshot().Counters[MetricJanitorEvicted]; got != 1 {
		t.Fatalf("expected janitor metric 1, got %d", got)
	}
}

func TestSweepExpiredRedisIsNoop(t *testing.T) {
	_, rdb := newTestRedis(t)
	te := newTestEngine(t, func(_ *Config, b *Builder) {
		b.WithRedis(rdb)
	})

	n, err := te.SweepExpired(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("expected no-op sweep, got %d, %v", n, err)
	}
}

func TestStartAndCloseIdempotent(t *testing.T) {
	te := newTestEngine(t, func(c *Config, _ *Builder) {
		c.Janitor.Enabled = true
		c.Janitor.Interval = time.Hour
	})

	te.Start()
	te.Start()
	if err := te.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := te.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestHealthReportsStoreOutage(t *testing.T) {
	mr, rdb := newTestRedis(t)
	te := newTestEngine(t, func(_ *Config, b *Builder) {
		b.WithRedis(rdb)
	})
	ctx := context.Background()

	if err := te.Health(ctx); err != nil {
		t.Fatalf("Health failed: %v", err)
	}

	mr.Close()

	err := te.Health(ctx)
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	_, err = te.RecordFailedAttempt(ctx, "kim")
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected store outage to map to ErrServiceUnavailable, got %v", err)
	}
	if !Retryable(err) {
		t.Fatal("store outage should be retryable")
	}
	if err := te.VerifyOTP(ctx, "kim@example.com", "123456", ChannelEmail, testPurpose); !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable from VerifyOTP, got %v", err)
	}
}

func TestSeparateStores(t *testing.T) {
	otpStore := store.NewMemory()
	rateStore := store.NewMemory()
	te := newTestEngine(t, func(_ *Config, b *Builder) {
		b.WithOTPStore(otpStore).WithRateLimitStore(rateStore)
	})
	ctx := context.Background()

	if _, err := te.SendOTP(ctx, "lee@example.com", ChannelEmail, testPurpose); err != nil {
		t.Fatalf("SendOTP failed: %v", err)
	}
	if _, err := te.RecordFailedAttempt(ctx, "lee"); err != nil {
		t.Fatalf("RecordFailedAttempt failed: %v", err)
	}
	if otpStore.Len() != 1 || rateStore.Len() != 1 {
		t.Fatalf("expected one record per store, got otp=%d rate=%d", otpStore.Len(), rateStore.Len())
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("%w: bad email", ErrValidation), http.StatusBadRequest},
		{ErrOTPNotFound, http.StatusNotFound},
		{ErrOTPExpired, http.StatusGone},
		{ErrOTPMaxAttempts, http.StatusTooManyRequests},
		{&LimitedError{RetryAfter: time.Minute}, http.StatusTooManyRequests},
		{&InvalidCodeError{Remaining: 1}, http.StatusUnauthorized},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrTokenExpired, http.StatusUnauthorized},
		{ErrTokenInvalid, http.StatusUnauthorized},
		{fmt.Errorf("%w: %w", ErrServiceUnavailable, errors.New("dial tcp")), http.StatusServiceUnavailable},
		{ErrCrypto, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := StatusCode(tc.err); got != tc.want {
			t.Errorf("StatusCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(fmt.Errorf("%w: redis down", ErrServiceUnavailable)) {
		t.Fatal("expected ErrServiceUnavailable to be retryable")
	}
	for _, err := range []error{nil, ErrValidation, ErrOTPExpired, ErrRateLimited, ErrCrypto, ErrTokenInvalid} {
		if Retryable(err) {
			t.Fatalf("expected %v not to be retryable", err)
		}
	}
}

func TestAuditEvents(t *testing.T) {
	sink := NewChannelSink(64)
	te := newTestEngine(t, func(c *Config, b *Builder) {
		c.Audit.Enabled = true
		c.Audit.DropIfFull = false
		b.WithAuditSink(sink)
	})
	ctx := WithClientIP(context.Background(), "203.0.113.7")

	if _, err := te.SendOTP(ctx, "mallory@example.com", ChannelEmail, testPurpose); err != nil {
		t.Fatalf("SendOTP failed: %v", err)
	}
	code := te.dispatcher.lastCode(t)
	_ = te.VerifyOTP(ctx, "mallory@example.com", "not-it", ChannelEmail, testPurpose)
	if err := te.VerifyOTP(ctx, "mallory@example.com", code, ChannelEmail, testPurpose); err != nil {
		t.Fatalf("VerifyOTP failed: %v", err)
	}
	if err := te.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	var events []AuditEvent
	for len(sink.Events()) > 0 {
		events = append(events, <-sink.Events())
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	want := []struct {
		eventType string
		success   bool
		errCode   string
	}{
		{auditEventOTPSent, true, ""},
		{auditEventOTPVerifyFailure, false, string(auditErrInvalidCode)},
		{auditEventOTPVerified, true, ""},
	}
	for i, w := range want {
		ev := events[i]
		if ev.EventType != w.eventType || ev.Success != w.success || ev.Error != w.errCode {
			t.Fatalf("event %d = %+v, want %+v", i, ev, w)
		}
		if ev.IP != "203.0.113.7" {
			t.Fatalf("event %d missing client ip: %q", i, ev.IP)
		}
		if ev.ID == "" {
			t.Fatalf("event %d missing id", i)
		}
		if strings.Contains(ev.Subject, "mallory") {
			t.Fatalf("event %d leaks destination: %q", i, ev.Subject)
		}
		for k, v := range ev.Metadata {
			if strings.Contains(v, code) {
				t.Fatalf("event %d metadata %s leaks the code", i, k)
			}
		}
	}
}

func TestRateLimitAuditCarriesRetryAfter(t *testing.T) {
	sink := NewChannelSink(64)
	te := newTestEngine(t, func(c *Config, b *Builder) {
		c.Audit.Enabled = true
		c.Audit.DropIfFull = false
		b.WithAuditSink(sink)
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := te.RecordFailedAttempt(ctx, "nina"); err != nil {
			t.Fatalf("RecordFailedAttempt failed: %v", err)
		}
	}
	if err := te.CheckRateLimit(ctx, "nina", 0, 0); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	_ = te.Close()

	var last AuditEvent
	for len(sink.Events()) > 0 {
		last = <-sink.Events()
	}
	if last.EventType != auditEventRateLimitTriggered {
		t.Fatalf("expected rate limit event last, got %q", last.EventType)
	}
	if last.Metadata["retry_after_minutes"] != "15" || last.Metadata["count"] != "5" {
		t.Fatalf("unexpected metadata %v", last.Metadata)
	}
}

func TestEngineMetrics(t *testing.T) {
	te := newTestEngine(t, func(c *Config, _ *Builder) {
		c.Metrics.Enabled = true
		c.Metrics.EnableLatencyHistograms = true
	})
	ctx := context.Background()

	if _, err := te.SendOTP(ctx, "oscar@example.com", ChannelEmail, testPurpose); err != nil {
		t.Fatalf("SendOTP failed: %v", err)
	}
	_ = te.VerifyOTP(ctx, "oscar@example.com", te.dispatcher.lastCode(t), ChannelEmail, testPurpose)
	_ = te.VerifyOTP(ctx, "oscar@example.com", "000000", ChannelEmail, testPurpose)
	if _, err := te.GenerateTokens(testUser()); err != nil {
		t.Fatalf("GenerateTokens failed: %v", err)
	}
	_, _ = te.VerifyToken("garbage", false)
	if _, err := te.HashPassword("Str0ng!Pass"); err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	_ = te.VerifyPassword("wrong", "$2a$04$invalid")

	snap := te.MetricsSnapshot()
	expect := map[MetricID]uint64{
		MetricOTPSent:               1,
		MetricOTPVerified:           1,
		MetricOTPNotFound:           1,
		MetricTokensIssued:          1,
		MetricTokenInvalid:          1,
		MetricPasswordHashed:        1,
		MetricPasswordVerifyFailure: 1,
	}
	for id, want := range expect {
		if got := snap.Counters[id]; got != want {
			t.Errorf("counter %d = %d, want %d", id, got, want)
		}
	}

	var observed uint64
	for _, n := range snap.Histograms[MetricDispatchLatency] {
		observed += n
	}
	if observed != 1 {
		t.Fatalf("expected one latency observation, got %d", observed)
	}
}
