package middleware

import (
	"errors"
	"net/http"

	goCred "github.com/MrEthical07/goCred"
)

// ErrNotVerified is returned by the RequireVerified check.
var ErrNotVerified = errors.New("account not verified")

// RequireAccessToken returns middleware that accepts any valid access token.
// Refresh tokens are rejected.
func RequireAccessToken(engine *goCred.Engine) func(http.Handler) http.Handler {
	return Guard(engine, nil)
}

// RequireVerified is RequireAccessToken plus the verified claim; unverified
// accounts get 403.
func RequireVerified(engine *goCred.Engine) func(http.Handler) http.Handler {
	return Guard(engine, func(p *goCred.TokenPayload) error {
		if !p.Verified {
			return ErrNotVerified
		}
		return nil
	})
}
