package goCred

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goCred/internal"
	"github.com/MrEthical07/goCred/notify"
	"github.com/MrEthical07/goCred/otp"
)

// GenerateOTP returns length independent digits from the system CSPRNG. It
// writes nothing; SendOTP generates its own code at the configured length.
func (e *Engine) GenerateOTP(length int) (string, error) {
	if e == nil || e.otp == nil {
		return "", ErrEngineNotReady
	}
	if length < internal.MinOTPDigits || length > internal.MaxOTPDigits {
		return "", fmt.Errorf("%w: otp length must be in [%d,%d]", ErrValidation, internal.MinOTPDigits, internal.MaxOTPDigits)
	}
	code, err := e.otp.Generate(length)
	if err != nil {
		return "", e.classify("generate_otp", err)
	}
	return code, nil
}

// SendOTP describes the sendotp operation and its observable behavior.
//
// SendOTP validates identifier for channel (ErrValidation, nothing written),
// fails with ErrServiceUnavailable when no dispatcher serves channel, then
// stores a fresh challenge for (identifier, channel, purpose) replacing any
// pending one, and dispatches the rendered message. A failed or timed out
// dispatch removes the challenge again and returns ErrServiceUnavailable.
func (e *Engine) SendOTP(ctx context.Context, identifier string, channel Channel, purpose string) (OTPSendResult, error) {
	if e == nil || e.otp == nil {
		return OTPSendResult{}, ErrEngineNotReady
	}

	res, err := e.otp.Send(ctx, identifier, channel, purpose)
	err = e.classify("send_otp", err)

	ev := AuditEvent{
		EventType: auditEventOTPSent,
		Subject:   notify.MaskDestination(identifier),
		Channel:   string(channel),
		Purpose:   purpose,
	}
	if err != nil {
		ev.EventType = auditEventOTPSendFailure
		e.emitAudit(ctx, ev, err)
		return OTPSendResult{}, err
	}

	e.metricInc(MetricOTPSent)
	e.emitAudit(ctx, ev, nil)
	return res, nil
}

// VerifyOTP describes the verifyotp operation and its observable behavior.
//
// A nil error means the code matched and the challenge is consumed.
// Otherwise, in order: ErrOTPNotFound (no challenge), ErrOTPExpired (the
// challenge is deleted), ErrOTPMaxAttempts (the budget was already spent; the
// challenge is deleted), or *InvalidCodeError matching ErrOTPInvalidCode (the
// attempt is counted). The mismatch that spends the last attempt leaves the
// challenge in place; the following call reports ErrOTPMaxAttempts.
func (e *Engine) VerifyOTP(ctx context.Context, identifier, code string, channel Channel, purpose string) error {
	if e == nil || e.otp == nil {
		return ErrEngineNotReady
	}

	err := e.classify("verify_otp", e.otp.Verify(ctx, identifier, code, channel, purpose))
	switch {
	case err == nil:
		e.metricInc(MetricOTPVerified)
	case errors.Is(err, ErrOTPInvalidCode):
		e.metricInc(MetricOTPInvalidCode)
	case errors.Is(err, ErrOTPExpired):
		e.metricInc(MetricOTPExpired)
	case errors.Is(err, ErrOTPMaxAttempts):
		e.metricInc(MetricOTPAttemptsExceeded)
	case errors.Is(err, ErrOTPNotFound):
		e.metricInc(MetricOTPNotFound)
	}

	ev := AuditEvent{
		EventType: auditEventOTPVerified,
		Subject:   notify.MaskDestination(identifier),
		Channel:   string(channel),
		Purpose:   purpose,
	}
	if err != nil {
		ev.EventType = auditEventOTPVerifyFailure
	}
	e.emitAudit(ctx, ev, err)
	return err
}

// DiscardOTP removes any pending challenge for (identifier, channel, purpose).
func (e *Engine) DiscardOTP(ctx context.Context, identifier string, channel Channel, purpose string) error {
	if e == nil || e.otp == nil {
		return ErrEngineNotReady
	}
	return e.classify("discard_otp", e.otp.Discard(ctx, identifier, channel, purpose))
}

// instrumentedDispatcher records dispatch latency and failures.
type instrumentedDispatcher struct {
	next   otp.Dispatcher
	engine *Engine
}

func (d *instrumentedDispatcher) Supports(channel otp.Channel) bool {
	if s, ok := d.next.(otp.ChannelSupporter); ok {
		return s.Supports(channel)
	}
	return true
}

func (d *instrumentedDispatcher) Send(ctx context.Context, channel otp.Channel, destination, message string) error {
	start := time.Now()
	err := d.next.Send(ctx, channel, destination, message)
	d.engine.metrics.Observe(MetricDispatchLatency, time.Since(start))
	if err != nil {
		d.engine.metricInc(MetricOTPDispatchFailure)
		d.engine.logger.Error().Err(err).
			Str("channel", string(channel)).
			Str("destination", notify.MaskDestination(destination)).
			Msg("otp dispatch failed")
	}
	return err
}
