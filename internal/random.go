package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
)

const (
	// MinOTPDigits and MaxOTPDigits bound the accepted OTP lengths.
	MinOTPDigits = 4
	MaxOTPDigits = 12
)

// SessionID is a 256-bit opaque identifier.
type SessionID [32]byte

// NewSessionID draws a SessionID from crypto/rand.
func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// Hex returns the lowercase hexadecimal encoding.
func (s SessionID) Hex() string {
	return hex.EncodeToString(s[:])
}

// ParseSessionID accepts the base64url form produced by String.
func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID
	if len(sessionID) != base64.RawURLEncoding.EncodedLen(len(sid)) {
		return sid, errors.New("invalid session id size")
	}

	raw, err := base64.RawURLEncoding.Strict().DecodeString(sessionID)
	if err != nil {
		return sid, err
	}
	if len(raw) != len(sid) {
		return sid, errors.New("invalid session id size")
	}

	copy(sid[:], raw)
	return sid, nil
}

// NewOTP returns digits independent decimal digits from crypto/rand.
func NewOTP(digits int) (string, error) {
	if digits < MinOTPDigits || digits > MaxOTPDigits {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}

// HashSecret returns the SHA-256 digest used to persist short secrets.
func HashSecret(v string) [32]byte {
	return sha256.Sum256([]byte(v))
}
