package goCred

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

var codePattern = regexp.MustCompile(`code is (\d+)\.`)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sentMessage struct {
	channel     Channel
	destination string
	message     string
}

// captureDispatcher records every message instead of delivering it.
type captureDispatcher struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (d *captureDispatcher) Send(_ context.Context, channel Channel, destination, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, sentMessage{channel: channel, destination: destination, message: message})
	return nil
}

func (d *captureDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

func (d *captureDispatcher) lastCode(t *testing.T) string {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sent) == 0 {
		t.Fatal("no message dispatched")
	}
	m := codePattern.FindStringSubmatch(d.sent[len(d.sent)-1].message)
	if m == nil {
		t.Fatalf("no code in message %q", d.sent[len(d.sent)-1].message)
	}
	return m[1]
}

// blockingDispatcher never completes until ctx ends.
type blockingDispatcher struct{}

func (blockingDispatcher) Send(ctx context.Context, _ Channel, _, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

type mockUserProvider struct {
	mu    sync.Mutex
	users map[string]User
}

func newMockUserProvider(users ...User) *mockUserProvider {
	p := &mockUserProvider{users: make(map[string]User)}
	for _, u := range users {
		p.users[u.ID] = u
	}
	return p
}

func (m *mockUserProvider) GetUserByID(_ context.Context, userID string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return User{}, errors.New("user not found")
	}
	return u, nil
}

func (m *mockUserProvider) remove(userID string) {
	m.mu.Lock()
	delete(m.users, userID)
	m.mu.Unlock()
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-for-tests-0123456789")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-for-tests-987654321")
	cfg.Password.BcryptCost = bcrypt.MinCost
	cfg.Janitor.Enabled = false
	return cfg
}

type testEngine struct {
	*Engine
	clock      *fakeClock
	dispatcher *captureDispatcher
	users      *mockUserProvider
}

func newTestEngine(t *testing.T, mutate func(*Config, *Builder)) testEngine {
	t.Helper()

	clock := newFakeClock()
	d := &captureDispatcher{}
	users := newMockUserProvider()

	cfg := testConfig()
	b := New().WithClock(clock.Now).WithDispatcher(d).WithUserProvider(users)
	if mutate != nil {
		mutate(&cfg, b)
	}
	engine, err := b.WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })

	return testEngine{Engine: engine, clock: clock, dispatcher: d, users: users}
}
