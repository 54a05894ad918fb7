package otp

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for malformed identifiers, channels or purposes.
	ErrValidation = errors.New("otp: invalid input")
	// ErrNotFound is returned when no pending code exists for the key.
	ErrNotFound = errors.New("otp: not found or expired")
	// ErrExpired is returned when the pending code is past its expiry.
	ErrExpired = errors.New("otp: expired")
	// ErrMaxAttempts is returned once the attempt budget is spent.
	ErrMaxAttempts = errors.New("otp: maximum attempts exceeded")
	// ErrInvalidCode matches every *InvalidCodeError through errors.Is.
	ErrInvalidCode = errors.New("otp: invalid code")
	// ErrUnavailable wraps dispatcher and store failures. Callers may retry.
	ErrUnavailable = errors.New("otp: service unavailable")
	// ErrGeneration wraps failures of the random source.
	ErrGeneration = errors.New("otp: code generation failed")
)

// InvalidCodeError reports a mismatched code and the attempts left before
// the challenge locks.
type InvalidCodeError struct {
	Remaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("otp: invalid code, %d attempt(s) remaining", e.Remaining)
}

// Is makes errors.Is(err, ErrInvalidCode) hold.
func (e *InvalidCodeError) Is(target error) bool {
	return target == ErrInvalidCode
}
