package goCred

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/goCred/internal/audit"
	internalmetrics "github.com/MrEthical07/goCred/internal/metrics"
	"github.com/MrEthical07/goCred/jwt"
	"github.com/MrEthical07/goCred/otp"
	"github.com/MrEthical07/goCred/password"
	"github.com/rs/zerolog"
)

// Channel is an OTP delivery channel.
type Channel = otp.Channel

const (
	// ChannelEmail delivers codes to an email address.
	ChannelEmail = otp.ChannelEmail
	// ChannelSMS delivers codes to an E.164 phone number.
	ChannelSMS = otp.ChannelSMS
)

// Dispatcher delivers rendered OTP messages. See notify for implementations.
type Dispatcher = otp.Dispatcher

// User is the subject tokens are issued for.
type User struct {
	ID       string
	Email    string
	Role     string
	Verified bool
}

func (u User) subject() jwt.Subject {
	return jwt.Subject{ID: u.ID, Email: u.Email, Role: u.Role, Verified: u.Verified}
}

// UserProvider resolves a token subject back to the current user record.
// [Engine.RefreshTokens] uses it so a refreshed access token carries fresh
// role and verification claims.
type UserProvider interface {
	GetUserByID(ctx context.Context, userID string) (User, error)
}

// UserProviderFunc adapts a function to [UserProvider].
type UserProviderFunc func(ctx context.Context, userID string) (User, error)

func (f UserProviderFunc) GetUserByID(ctx context.Context, userID string) (User, error) {
	return f(ctx, userID)
}

// TokenPair is returned by GenerateTokens and RefreshTokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime.
	ExpiresIn time.Duration
}

// TokenPayload is the decoded form of an access or refresh token.
type TokenPayload = jwt.Payload

// PasswordStrength is the result of ValidatePasswordStrength.
type PasswordStrength = password.Strength

// OTPSendResult is returned by SendOTP.
type OTPSendResult = otp.SendResult

// RateLimitStatus is the failed-attempt window of one identifier.
type RateLimitStatus struct {
	Count   int
	ResetAt time.Time
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// ZerologSink is an [AuditSink] that writes events through a zerolog logger.
type ZerologSink = internalaudit.ZerologSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZerologSink creates a [ZerologSink].
func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return internalaudit.NewZerologSink(logger)
}

// MetricID identifies a specific counter or histogram in the in-process
// metrics system.
type MetricID = internalmetrics.MetricID

const (
	// MetricOTPSent counts codes written and dispatched.
	MetricOTPSent = internalmetrics.MetricOTPSent
	// MetricOTPVerified counts successful verifications.
	MetricOTPVerified = internalmetrics.MetricOTPVerified
	// MetricOTPInvalidCode counts mismatched codes.
	MetricOTPInvalidCode = internalmetrics.MetricOTPInvalidCode
	// MetricOTPExpired counts verifications that found an expired code.
	MetricOTPExpired = internalmetrics.MetricOTPExpired
	// MetricOTPAttemptsExceeded counts verifications rejected for a spent budget.
	MetricOTPAttemptsExceeded = internalmetrics.MetricOTPAttemptsExceeded
	// MetricOTPNotFound counts verifications with no pending code.
	MetricOTPNotFound = internalmetrics.MetricOTPNotFound
	// MetricOTPDispatchFailure counts failed or timed out deliveries.
	MetricOTPDispatchFailure = internalmetrics.MetricOTPDispatchFailure
	// MetricRateLimitHit counts checks that denied a request.
	MetricRateLimitHit = internalmetrics.MetricRateLimitHit
	// MetricFailedAttemptRecorded counts recorded failures.
	MetricFailedAttemptRecorded = internalmetrics.MetricFailedAttemptRecorded
	// MetricFailedAttemptsCleared counts explicit clears.
	MetricFailedAttemptsCleared = internalmetrics.MetricFailedAttemptsCleared
	// MetricTokensIssued counts issued token pairs.
	MetricTokensIssued = internalmetrics.MetricTokensIssued
	// MetricTokensRefreshed counts pairs issued through RefreshTokens.
	MetricTokensRefreshed = internalmetrics.MetricTokensRefreshed
	// MetricTokenInvalid counts rejected tokens.
	MetricTokenInvalid = internalmetrics.MetricTokenInvalid
	// MetricTokenExpired counts expired tokens.
	MetricTokenExpired = internalmetrics.MetricTokenExpired
	// MetricPasswordHashed counts produced hashes.
	MetricPasswordHashed = internalmetrics.MetricPasswordHashed
	// MetricPasswordVerifyFailure counts password mismatches.
	MetricPasswordVerifyFailure = internalmetrics.MetricPasswordVerifyFailure
	// MetricJanitorEvicted counts records removed by the janitor.
	MetricJanitorEvicted = internalmetrics.MetricJanitorEvicted
	// MetricDispatchLatency is the OTP dispatch latency histogram.
	MetricDispatchLatency = internalmetrics.MetricDispatchLatency
)

// Metrics is the engine's in-process metric registry.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Enabled,
		EnableLatencyHistograms: cfg.EnableLatencyHistograms,
	})
}
