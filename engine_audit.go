package goCred

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventOTPSent               = "otp_sent"
	auditEventOTPSendFailure        = "otp_send_failure"
	auditEventOTPVerified           = "otp_verified"
	auditEventOTPVerifyFailure      = "otp_verify_failure"
	auditEventRateLimitTriggered    = "rate_limit_triggered"
	auditEventFailedAttemptRecorded = "failed_attempt_recorded"
	auditEventFailedAttemptsCleared = "failed_attempts_cleared"
	auditEventTokensIssued          = "tokens_issued"
	auditEventTokensRefreshed       = "tokens_refreshed"
	auditEventRefreshRejected       = "refresh_rejected"
	auditEventPasswordHashFailure   = "password_hash_failure"
)

// AuditErrorCode is the stable, non-sensitive error label carried by audit
// events.
type AuditErrorCode string

const (
	auditErrValidation         AuditErrorCode = "validation"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrExpired            AuditErrorCode = "expired"
	auditErrAttemptsExceeded   AuditErrorCode = "attempts_exceeded"
	auditErrInvalidCode        AuditErrorCode = "invalid_code"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrCrypto             AuditErrorCode = "crypto_failure"
	auditErrNotReady           AuditErrorCode = "not_ready"
	auditErrInternal           AuditErrorCode = "internal_error"
)

// emitAudit stamps event with the caller IP and the error label of err, then
// hands it to the dispatcher. It is a no-op when auditing is disabled.
func (e *Engine) emitAudit(ctx context.Context, event AuditEvent, err error) {
	if e == nil || e.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.IP == "" {
		event.IP = clientIPFromContext(ctx)
	}
	event.Success = err == nil
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}
	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrOTPNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrOTPExpired):
		return auditErrExpired
	case errors.Is(err, ErrOTPMaxAttempts):
		return auditErrAttemptsExceeded
	case errors.Is(err, ErrOTPInvalidCode):
		return auditErrInvalidCode
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrServiceUnavailable), unavailable(err):
		return auditErrUnavailable
	case errors.Is(err, ErrCrypto), cryptoFailure(err):
		return auditErrCrypto
	case errors.Is(err, ErrEngineNotReady):
		return auditErrNotReady
	default:
		return auditErrInternal
	}
}
