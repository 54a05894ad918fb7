package goCred

import (
	"context"
)

// HashPassword describes the hashpassword operation and its observable behavior.
//
// HashPassword returns a salted bcrypt hash at the configured cost. A
// failure of the primitive (including input longer than 72 bytes) is logged
// and returned as an opaque ErrCrypto.
func (e *Engine) HashPassword(password string) (string, error) {
	if e == nil || e.passwordHash == nil {
		return "", ErrEngineNotReady
	}
	hash, err := e.passwordHash.Hash(password)
	if err != nil {
		err = e.classify("hash_password", err)
		e.emitAudit(context.Background(), AuditEvent{EventType: auditEventPasswordHashFailure}, err)
		return "", err
	}
	e.metricInc(MetricPasswordHashed)
	return hash, nil
}

// VerifyPassword reports whether password matches hash. Malformed hashes
// and primitive failures yield false.
func (e *Engine) VerifyPassword(password, hash string) bool {
	if e == nil || e.passwordHash == nil {
		return false
	}
	if !e.passwordHash.Verify(password, hash) {
		e.metricInc(MetricPasswordVerifyFailure)
		return false
	}
	return true
}

// PasswordNeedsRehash reports whether hash was produced with a lower cost
// than the configured one. With Password.UpgradeOnLogin disabled it always
// returns false.
func (e *Engine) PasswordNeedsRehash(hash string) bool {
	if e == nil || e.passwordHash == nil || !e.config.Password.UpgradeOnLogin {
		return false
	}
	return e.passwordHash.NeedsRehash(hash)
}

// ValidatePasswordStrength checks password against the configured policy and
// returns every failing rule, not just the first.
func (e *Engine) ValidatePasswordStrength(password string) PasswordStrength {
	if e == nil {
		return PasswordStrength{Valid: false, Errors: []string{ErrEngineNotReady.Error()}}
	}
	return e.passwordPolicy.Validate(password)
}
