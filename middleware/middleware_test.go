package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	goCred "github.com/MrEthical07/goCred"
	"golang.org/x/crypto/bcrypt"
)

func newEngine(t *testing.T) *goCred.Engine {
	t.Helper()

	cfg := goCred.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("middleware-access-secret-0123456789")
	cfg.JWT.RefreshSecret = []byte("middleware-refresh-secret-012345678")
	cfg.Password.BcryptCost = bcrypt.MinCost
	cfg.Janitor.Enabled = false

	engine, err := goCred.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

func okHandler(t *testing.T, wantID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PayloadFromContext(r.Context())
		if !ok {
			t.Fatal("payload missing from context")
		}
		if p.ID != wantID {
			t.Fatalf("payload id = %q, want %q", p.ID, wantID)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func serve(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequireAccessToken(t *testing.T) {
	engine := newEngine(t)
	pair, err := engine.GenerateTokens(goCred.User{ID: "u1", Email: "u1@example.com"})
	if err != nil {
		t.Fatalf("GenerateTokens failed: %v", err)
	}
	h := RequireAccessToken(engine)(okHandler(t, "u1"))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + pair.AccessToken, http.StatusNoContent},
		{"lowercase scheme", "bearer " + pair.AccessToken, http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + pair.AccessToken, http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"refresh token", "Bearer " + pair.RefreshToken, http.StatusUnauthorized},
		{"garbage", "Bearer not.a.token", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(h, tc.header)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			if tc.want == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Fatal("expected WWW-Authenticate challenge")
			}
		})
	}
}

func TestRequireVerified(t *testing.T) {
	engine := newEngine(t)
	h := RequireVerified(engine)(okHandler(t, "v1"))

	unverified, err := engine.GenerateTokens(goCred.User{ID: "v1", Verified: false})
	if err != nil {
		t.Fatalf("GenerateTokens failed: %v", err)
	}
	if rec := serve(h, "Bearer "+unverified.AccessToken); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unverified, got %d", rec.Code)
	}

	verified, err := engine.GenerateTokens(goCred.User{ID: "v1", Verified: true})
	if err != nil {
		t.Fatalf("GenerateTokens failed: %v", err)
	}
	if rec := serve(h, "Bearer "+verified.AccessToken); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for verified, got %d", rec.Code)
	}
}

func TestGuardNilEngine(t *testing.T) {
	h := RequireAccessToken(nil)(http.NotFoundHandler())
	if rec := serve(h, "Bearer x"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()

	var sawIP string
	h := RateLimit(engine, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawIP = ClientIP(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "198.51.100.4:52311"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(); rec.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through, got %d", rec.Code)
	}
	if sawIP != "198.51.100.4" {
		t.Fatalf("unexpected client ip %q", sawIP)
	}

	for i := 0; i < 5; i++ {
		if _, err := engine.RecordFailedAttempt(ctx, "198.51.100.4"); err != nil {
			t.Fatalf("RecordFailedAttempt failed: %v", err)
		}
	}

	rec := do()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "900" {
		t.Fatalf("expected Retry-After 900, got %q", rec.Header().Get("Retry-After"))
	}
}
