package goCred

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goCred/internal/rate"
)

func validIdentifier(identifier string) error {
	if strings.TrimSpace(identifier) == "" {
		return fmt.Errorf("%w: identifier is required", ErrValidation)
	}
	return nil
}

// CheckRateLimit describes the checkratelimit operation and its observable behavior.
//
// CheckRateLimit allows identifier when it has no live failure window or
// fewer than maxAttempts failures in it. Otherwise it returns a
// *LimitedError (errors.Is ErrRateLimited) whose Minutes reports the
// remaining lockout rounded up. maxAttempts <= 0 and window <= 0 fall back to
// the configured RateLimit values. The reset time is fixed by the failure
// that opened the window, so a check never extends a lockout.
func (e *Engine) CheckRateLimit(ctx context.Context, identifier string, maxAttempts int, window time.Duration) error {
	if e == nil || e.rateLimiter == nil {
		return ErrEngineNotReady
	}
	if err := validIdentifier(identifier); err != nil {
		return err
	}

	rec, err := e.rateLimiter.Check(ctx, identifier, rate.Policy{MaxAttempts: maxAttempts, Window: window})
	if err != nil {
		err = e.classify("check_rate_limit", err)
		var lim *rate.LimitedError
		if errors.As(err, &lim) {
			e.metricInc(MetricRateLimitHit)
			e.emitAudit(ctx, AuditEvent{
				EventType: auditEventRateLimitTriggered,
				Subject:   identifier,
				Metadata: map[string]string{
					"count":               strconv.Itoa(rec.Count),
					"retry_after_minutes": strconv.Itoa(lim.Minutes()),
				},
			}, err)
		}
		return err
	}
	return nil
}

// RecordFailedAttempt counts one failure for identifier in the configured
// window, opening a new window anchored now when none is live.
func (e *Engine) RecordFailedAttempt(ctx context.Context, identifier string) (RateLimitStatus, error) {
	return e.RecordFailedAttemptWith(ctx, identifier, 0)
}

// RecordFailedAttemptWith is RecordFailedAttempt with an explicit window
// length for newly opened windows. window <= 0 uses the configured value.
func (e *Engine) RecordFailedAttemptWith(ctx context.Context, identifier string, window time.Duration) (RateLimitStatus, error) {
	if e == nil || e.rateLimiter == nil {
		return RateLimitStatus{}, ErrEngineNotReady
	}
	if err := validIdentifier(identifier); err != nil {
		return RateLimitStatus{}, err
	}

	rec, err := e.rateLimiter.RecordFailure(ctx, identifier, rate.Policy{Window: window})
	if err != nil {
		err = e.classify("record_failed_attempt", err)
		e.emitAudit(ctx, AuditEvent{EventType: auditEventFailedAttemptRecorded, Subject: identifier}, err)
		return RateLimitStatus{}, err
	}
	e.metricInc(MetricFailedAttemptRecorded)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventFailedAttemptRecorded,
		Subject:   identifier,
		Metadata:  map[string]string{"count": strconv.Itoa(rec.Count)},
	}, nil)
	return RateLimitStatus{Count: rec.Count, ResetAt: rec.ResetAt}, nil
}

// ClearFailedAttempts deletes the failure window for identifier
// unconditionally, typically after a successful authentication.
func (e *Engine) ClearFailedAttempts(ctx context.Context, identifier string) error {
	if e == nil || e.rateLimiter == nil {
		return ErrEngineNotReady
	}
	if err := validIdentifier(identifier); err != nil {
		return err
	}
	if err := e.rateLimiter.Clear(ctx, identifier); err != nil {
		return e.classify("clear_failed_attempts", err)
	}
	e.metricInc(MetricFailedAttemptsCleared)
	e.emitAudit(ctx, AuditEvent{EventType: auditEventFailedAttemptsCleared, Subject: identifier}, nil)
	return nil
}

// FailedAttempts returns the failure count in the live window for
// identifier, or zero when none is live.
func (e *Engine) FailedAttempts(ctx context.Context, identifier string) (int, error) {
	if e == nil || e.rateLimiter == nil {
		return 0, ErrEngineNotReady
	}
	if err := validIdentifier(identifier); err != nil {
		return 0, err
	}
	n, err := e.rateLimiter.Attempts(ctx, identifier)
	if err != nil {
		return 0, e.classify("failed_attempts", err)
	}
	return n, nil
}
