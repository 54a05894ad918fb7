package goCred

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/goCred/internal/rate"
	"github.com/MrEthical07/goCred/jwt"
	"github.com/MrEthical07/goCred/otp"
	"github.com/MrEthical07/goCred/password"
	"github.com/MrEthical07/goCred/store"
)

// Root error kinds. Sentinels owned by a sub-package are re-exported so that
// errors.Is works against either name.
var (
	// ErrValidation is returned for malformed input before any state changes.
	ErrValidation = otp.ErrValidation
	// ErrOTPNotFound is returned when no pending code exists for the key.
	ErrOTPNotFound = otp.ErrNotFound
	// ErrOTPExpired is returned once, when a pending code is found past its expiry.
	ErrOTPExpired = otp.ErrExpired
	// ErrOTPMaxAttempts is returned when the attempt budget of a code is spent.
	ErrOTPMaxAttempts = otp.ErrMaxAttempts
	// ErrOTPInvalidCode matches every *otp.InvalidCodeError.
	ErrOTPInvalidCode = otp.ErrInvalidCode
	// ErrRateLimited matches every *rate.LimitedError; use errors.As to read
	// the remaining lockout.
	ErrRateLimited = rate.ErrRateLimited
	// ErrInvalidCredentials is returned when a token subject no longer resolves
	// to a user.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenExpired is returned for correctly signed tokens past their expiry.
	ErrTokenExpired = jwt.ErrExpired
	// ErrTokenInvalid is returned for tokens with a bad signature, structure or type.
	ErrTokenInvalid = jwt.ErrInvalid
	// ErrServiceUnavailable wraps store and dispatcher failures. It is the only
	// retryable kind.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrCrypto wraps failures of the hashing, signing or random primitives.
	ErrCrypto = errors.New("cryptographic primitive failed")
	// ErrEngineNotReady is returned when an operation needs a collaborator that
	// was not configured.
	ErrEngineNotReady = errors.New("engine not ready")
)

// LimitedError is the concrete rate limit error.
type LimitedError = rate.LimitedError

// InvalidCodeError is the concrete OTP mismatch error.
type InvalidCodeError = otp.InvalidCodeError

// StatusCode maps an engine error to the HTTP status a boundary layer should
// answer with. nil maps to 200.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrOTPNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrOTPExpired):
		return http.StatusGone
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrOTPMaxAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrOTPInvalidCode),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the same call may succeed later without any
// change from the caller.
func Retryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

func cryptoFailure(err error) bool {
	return errors.Is(err, password.ErrCrypto) ||
		errors.Is(err, jwt.ErrSigning) ||
		errors.Is(err, otp.ErrGeneration)
}

// unavailable reports whether err came from a store or dispatcher outage.
func unavailable(err error) bool {
	return errors.Is(err, otp.ErrUnavailable) ||
		errors.Is(err, store.ErrUnavailable) ||
		errors.Is(err, rate.ErrStoreUnavailable) ||
		errors.Is(err, rate.ErrContention)
}
