package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestDisabledMetricsDropWrites(t *testing.T) {
	m := New(Config{Enabled: false})
	m.Inc(MetricOTPSent)
	m.Observe(MetricDispatchLatency, time.Millisecond)

	if got := m.Value(MetricOTPSent); got != 0 {
		t.Fatalf("expected 0 when disabled, got %d", got)
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricOTPSent)
	m.Observe(MetricDispatchLatency, time.Second)
	if m.Enabled() || m.LatencyEnabled() || m.Value(MetricOTPSent) != 0 {
		t.Fatal("nil metrics must report nothing")
	}
}

func TestCountersAreConcurrent(t *testing.T) {
	m := New(Config{Enabled: true})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(MetricRateLimitHit)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricRateLimitHit); got != 16000 {
		t.Fatalf("expected 16000, got %d", got)
	}
	m.Add(MetricJanitorEvicted, 7)
	if got := m.Snapshot().Counters[MetricJanitorEvicted]; got != 7 {
		t.Fatalf("expected 7 evicted, got %d", got)
	}
}

func TestLatencyHistogramBuckets(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatencyHistograms: true})
	m.Observe(MetricDispatchLatency, 2*time.Millisecond)
	m.Observe(MetricDispatchLatency, 40*time.Millisecond)
	m.Observe(MetricDispatchLatency, 3*time.Second)
	m.Observe(MetricOTPSent, time.Millisecond)

	buckets := m.Snapshot().Histograms[MetricDispatchLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}
	if buckets[0] != 1 || buckets[3] != 1 || buckets[7] != 1 {
		t.Fatalf("unexpected bucket layout: %v", buckets)
	}
	if _, ok := m.Snapshot().Histograms[MetricOTPSent]; ok {
		t.Fatal("counter-only metrics must not carry a histogram")
	}
}
