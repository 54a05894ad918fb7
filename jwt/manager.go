package jwt

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTypeRefresh is the tokenType claim carried by refresh tokens.
const TokenTypeRefresh = "refresh"

var (
	// ErrInvalid is returned for tokens with a bad signature, structure or claims.
	ErrInvalid = errors.New("jwt: invalid token")
	// ErrExpired is returned for correctly signed tokens past their exp claim.
	ErrExpired = errors.New("jwt: token expired")
	// ErrSigning wraps failures of the signing primitive.
	ErrSigning = errors.New("jwt: signing failed")
)

// Config defines a public type used by goCred APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	Leeway        time.Duration
	// Now overrides the clock used for issuance and validation.
	Now func() time.Time
}

// Subject is the identity a token pair is issued for.
type Subject struct {
	ID       string
	Email    string
	Role     string
	Verified bool
}

// AccessClaims is the claim set of an access token.
type AccessClaims struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Verified bool   `json:"verified"`
	jwt.RegisteredClaims
}

// RefreshClaims is the claim set of a refresh token.
type RefreshClaims struct {
	ID        string `json:"id"`
	TokenType string `json:"tokenType"`
	jwt.RegisteredClaims
}

// Payload is the decoded form of either token kind. Access tokens leave
// TokenType empty; refresh tokens leave Email, Role and Verified zero.
type Payload struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	Verified  bool   `json:"verified,omitempty"`
	TokenType string `json:"tokenType,omitempty"`
	jwt.RegisteredClaims
}

// IsRefresh reports whether the payload carries the refresh token type.
func (p *Payload) IsRefresh() bool {
	return p.TokenType == TokenTypeRefresh
}

// Pair is a freshly issued access and refresh token.
type Pair struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime.
	ExpiresIn time.Duration
}

// Manager defines a public type used by goCred APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	config Config
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation fails. Access and
// refresh secrets must both be set and must differ.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("hs256 requires access and refresh secrets")
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Manager{config: cfg}, nil
}

// Generate describes the generate operation and its observable behavior.
//
// Generate signs an access token carrying {id, email, role, verified} and a
// refresh token carrying {id, tokenType:"refresh"} with independent secrets
// and lifetimes. Signing failures are wrapped in ErrSigning.
func (j *Manager) Generate(sub Subject) (Pair, error) {
	if sub.ID == "" {
		return Pair{}, errors.New("subject id is required")
	}
	now := j.config.Now()

	access := AccessClaims{
		ID:               sub.ID,
		Email:            sub.Email,
		Role:             sub.Role,
		Verified:         sub.Verified,
		RegisteredClaims: j.registered(sub.ID, now, j.config.AccessTTL),
	}
	refresh := RefreshClaims{
		ID:               sub.ID,
		TokenType:        TokenTypeRefresh,
		RegisteredClaims: j.registered(sub.ID, now, j.config.RefreshTTL),
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, access).SignedString(j.config.AccessSecret)
	if err != nil {
		return Pair{}, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refresh).SignedString(j.config.RefreshSecret)
	if err != nil {
		return Pair{}, fmt.Errorf("%w: %v", ErrSigning, err)
	}

	return Pair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    j.config.AccessTTL,
	}, nil
}

// Verify describes the verify operation and its observable behavior.
//
// Verify checks tokenStr against the refresh secret when refresh is true and
// the access secret otherwise. It returns ErrExpired for a correctly signed
// token past its expiry and ErrInvalid for every other rejection. Callers of
// a refresh flow must still check Payload.IsRefresh.
func (j *Manager) Verify(tokenStr string, refresh bool) (*Payload, error) {
	key := j.config.AccessSecret
	if refresh {
		key = j.config.RefreshSecret
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.config.Now),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}
	if j.config.Audience != "" {
		options = append(options, jwt.WithAudience(j.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Payload{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	payload, ok := token.Claims.(*Payload)
	if !ok || !token.Valid || payload.ID == "" {
		return nil, ErrInvalid
	}
	return payload, nil
}

func (j *Manager) registered(subject string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    j.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if j.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{j.config.Audience}
	}
	return claims
}
