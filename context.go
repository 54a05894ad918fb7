package goCred

import (
	"context"

	"github.com/MrEthical07/goCred/internal/l10n"
	"golang.org/x/text/language"
)

type clientIPContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine copies it
// into audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithLocale selects the language of OTP notification text when
// OTP.LocalizeMessages is enabled. Unsupported tags fall back to English.
func WithLocale(ctx context.Context, tag language.Tag) context.Context {
	return l10n.WithLocale(ctx, tag)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
