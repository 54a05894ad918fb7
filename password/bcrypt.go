package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the bcrypt work factor used when none is configured.
	DefaultCost = 12
	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72
)

var (
	// ErrCrypto wraps failures of the underlying hashing primitive.
	ErrCrypto = errors.New("password: hashing primitive failed")
	// ErrInvalidCost is returned by NewBcrypt for out-of-range work factors.
	ErrInvalidCost = errors.New("password: invalid bcrypt cost")
)

// Bcrypt hashes and verifies passwords with a fixed bcrypt work factor.
//
// Bcrypt instances are immutable after construction and safe for concurrent use.
type Bcrypt struct {
	cost int
}

// NewBcrypt describes the newbcrypt operation and its observable behavior.
//
// NewBcrypt returns ErrInvalidCost when cost falls outside bcrypt's accepted range.
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCost, cost)
	}
	return &Bcrypt{cost: cost}, nil
}

// Cost returns the configured work factor.
func (b *Bcrypt) Cost() int {
	return b.cost
}

// Hash describes the hash operation and its observable behavior.
//
// Hash returns a salted bcrypt hash in modular crypt format ($2a$<cost>$...).
// Any failure of the primitive, including input over MaxPasswordBytes, is
// reported as ErrCrypto.
func (b *Bcrypt) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. Malformed hashes and
// primitive failures yield false so callers cannot distinguish them from a
// mismatch.
func (b *Bcrypt) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NeedsRehash reports whether hash was produced with a lower cost than the
// configured one, or cannot be parsed.
func (b *Bcrypt) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost < b.cost
}
