package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	goCred "github.com/MrEthical07/goCred"
)

type payloadContextKey struct{}

// PayloadFromContext returns the access token payload stored by a guard.
func PayloadFromContext(ctx context.Context) (*goCred.TokenPayload, bool) {
	p, ok := ctx.Value(payloadContextKey{}).(*goCred.TokenPayload)
	return p, ok
}

// Guard verifies the bearer access token and, when check is non-nil, runs it
// against the payload. A check error answers 403.
func Guard(engine *goCred.Engine, check func(*goCred.TokenPayload) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				unauthorized(w, "")
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, "")
				return
			}

			payload, err := engine.VerifyToken(token, false)
			if err != nil {
				if errors.Is(err, goCred.ErrTokenExpired) {
					unauthorized(w, "invalid_token")
					return
				}
				unauthorized(w, "")
				return
			}
			if check != nil {
				if err := check(payload); err != nil {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
			}

			ctx := context.WithValue(r.Context(), payloadContextKey{}, payload)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, code string) {
	challenge := "Bearer"
	if code != "" {
		challenge += ` error="` + code + `"`
	}
	w.Header().Set("WWW-Authenticate", challenge)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
