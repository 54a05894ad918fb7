package middleware

import (
	"errors"
	"net"
	"net/http"
	"strconv"

	goCred "github.com/MrEthical07/goCred"
)

// KeyFunc derives the rate limit identifier of a request. An empty key skips
// the check.
type KeyFunc func(r *http.Request) string

// ClientIP returns the host part of r.RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit returns middleware that answers 429 with Retry-After while the
// failure window for key(r) is exhausted. The client IP is attached to the
// request context for audit events either way.
func RateLimit(engine *goCred.Engine, key KeyFunc) func(http.Handler) http.Handler {
	if key == nil {
		key = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := goCred.WithClientIP(r.Context(), ClientIP(r))
			r = r.WithContext(ctx)

			id := key(r)
			if engine == nil || id == "" {
				next.ServeHTTP(w, r)
				return
			}

			err := engine.CheckRateLimit(ctx, id, 0, 0)
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}

			var limited *goCred.LimitedError
			if errors.As(err, &limited) {
				w.Header().Set("Retry-After", strconv.Itoa(limited.Minutes()*60))
			}
			status := goCred.StatusCode(err)
			http.Error(w, http.StatusText(status), status)
		})
	}
}
