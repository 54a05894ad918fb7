// Command gocred-loadtest drives the OTP and failed-attempt paths of a
// goCred engine concurrently and reports latency percentiles per phase.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goCred "github.com/MrEthical07/goCred"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var codePattern = regexp.MustCompile(`code is (\d+)\.`)

// codeSink keeps the last code dispatched to each destination.
type codeSink struct {
	mu    sync.Mutex
	codes map[string]string
}

func (s *codeSink) Send(_ context.Context, _ goCred.Channel, destination, message string) error {
	m := codePattern.FindStringSubmatch(message)
	if m == nil {
		return errors.New("no code in message")
	}
	s.mu.Lock()
	s.codes[destination] = m[1]
	s.mu.Unlock()
	return nil
}

func (s *codeSink) code(destination string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[destination]
}

func main() {
	var (
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase")
		keys        = flag.Int("keys", 64, "distinct identifiers in the rate limit phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env, then miniredis, is used")
		memory      = flag.Bool("memory", false, "use the in-process store instead of redis")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 || *keys <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency, ops, and keys must be > 0")
		os.Exit(2)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)

	cfg := goCred.DefaultConfig()
	cfg.JWT.AccessSecret = []byte(uuid.NewString() + uuid.NewString())
	cfg.JWT.RefreshSecret = []byte(uuid.NewString() + uuid.NewString())
	cfg.Janitor.Enabled = false
	// Every failure in the rate limit phase must be counted, never denied.
	cfg.RateLimit.MaxAttempts = 1 << 30

	sink := &codeSink{codes: make(map[string]string)}
	b := goCred.New().WithDispatcher(sink).WithLogger(logger)

	if !*memory {
		addr := *redisAddr
		if addr == "" {
			addr = os.Getenv("REDIS_ADDR")
		}
		var client redis.UniversalClient
		if addr == "" {
			mr, err := miniredis.Run()
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
				os.Exit(1)
			}
			defer mr.Close()
			addr = mr.Addr()
			fmt.Printf("using miniredis at %s\n", addr)
		} else {
			fmt.Printf("using redis at %s\n", addr)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		defer client.Close()
		b = b.WithRedis(client)
	} else {
		fmt.Println("using in-process memory store")
	}

	engine, err := b.WithConfig(cfg).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx := context.Background()
	otpStats := runOTPPhase(ctx, engine, sink, *ops, *concurrency)
	rateStats, lost := runRatePhase(ctx, engine, *ops, *concurrency, *keys)

	fmt.Println("---- results ----")
	printStats("otp send+verify", otpStats)
	printStats("record failure", rateStats)
	if lost != 0 {
		fmt.Printf("record failure: %d increments lost\n", lost)
		os.Exit(1)
	}
}

func runOTPPhase(ctx context.Context, engine *goCred.Engine, sink *codeSink, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, func(_ *rand.Rand, _ int) error {
		email := uuid.NewString() + "@load.test"
		if _, err := engine.SendOTP(ctx, email, goCred.ChannelEmail, "login"); err != nil {
			return err
		}
		return engine.VerifyOTP(ctx, email, sink.code(email), goCred.ChannelEmail, "login")
	})
}

// runRatePhase hammers a small key set so compare-and-swap retries are
// exercised, then checks that no increment was lost.
func runRatePhase(ctx context.Context, engine *goCred.Engine, ops, concurrency, keys int) (phaseStats, int) {
	prefix := uuid.NewString()
	ids := make([]string, keys)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s:%d", prefix, i)
	}

	var recorded atomic.Int64
	stats := runPhase(ops, concurrency, func(r *rand.Rand, _ int) error {
		if _, err := engine.RecordFailedAttempt(ctx, ids[r.Intn(len(ids))]); err != nil {
			return err
		}
		recorded.Add(1)
		return nil
	})

	total := 0
	for _, id := range ids {
		n, err := engine.FailedAttempts(ctx, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read attempts: %v\n", err)
			os.Exit(1)
		}
		total += n
	}
	return stats, int(recorded.Load()) - total
}

func runPhase(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	switch {
	case len(samples) == 0:
		return 0
	case p <= 0:
		return samples[0]
	case p >= 100:
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
