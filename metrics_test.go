package goCred

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricOTPSent)

	if got := m.Value(MetricOTPSent); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricRateLimitHit)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricRateLimitHit); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}
	for _, d := range observations {
		m.Observe(MetricDispatchLatency, d)
	}

	buckets := m.Snapshot().Histograms[MetricDispatchLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsDisabledEngineSnapshotIsEmpty(t *testing.T) {
	te := newTestEngine(t, nil)

	if _, err := te.SendOTP(context.Background(), "pat@example.com", ChannelEmail, testPurpose); err != nil {
		t.Fatalf("SendOTP failed: %v", err)
	}
	for id, v := range te.MetricsSnapshot().Counters {
		if v != 0 {
			t.Fatalf("counter %d = %d with metrics disabled", id, v)
		}
	}
}

func TestVerifyTokenWithMetricsAvoidsProviderCalls(t *testing.T) {
	calls := 0
	provider := UserProviderFunc(func(_ context.Context, id string) (User, error) {
		calls++
		return User{ID: id}, nil
	})
	te := newTestEngine(t, func(c *Config, b *Builder) {
		c.Metrics.Enabled = true
		c.Metrics.EnableLatencyHistograms = true
		b.WithUserProvider(provider)
	})

	pair, err := te.GenerateTokens(testUser())
	if err != nil {
		t.Fatalf("GenerateTokens failed: %v", err)
	}
	if _, err := te.VerifyToken(pair.AccessToken, false); err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected VerifyToken to avoid provider calls, got %d", calls)
	}
}
