package goCred

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// GenerateTokens issues an access token carrying {id, email, role,
// verified} and a refresh token carrying {id, tokenType:"refresh"}, signed
// with distinct secrets and lifetimes.
func (e *Engine) GenerateTokens(user User) (TokenPair, error) {
	if e == nil || e.jwtManager == nil {
		return TokenPair{}, ErrEngineNotReady
	}
	if strings.TrimSpace(user.ID) == "" {
		return TokenPair{}, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	pair, err := e.jwtManager.Generate(user.subject())
	if err != nil {
		return TokenPair{}, e.classify("generate_tokens", err)
	}
	e.metricInc(MetricTokensIssued)
	e.emitAudit(context.Background(), AuditEvent{EventType: auditEventTokensIssued, Subject: user.ID}, nil)

	return TokenPair{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// VerifyToken describes the verifytoken operation and its observable behavior.
//
// VerifyToken checks token against the refresh secret when isRefresh is true
// and the access secret otherwise. It returns ErrTokenExpired for a
// correctly signed token past its expiry and ErrTokenInvalid for every other
// rejection, including a refresh verification of a token without
// tokenType "refresh".
func (e *Engine) VerifyToken(token string, isRefresh bool) (*TokenPayload, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	payload, err := e.jwtManager.Verify(token, isRefresh)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			e.metricInc(MetricTokenExpired)
		} else {
			e.metricInc(MetricTokenInvalid)
		}
		return nil, err
	}
	if payload.IsRefresh() != isRefresh {
		e.metricInc(MetricTokenInvalid)
		return nil, fmt.Errorf("%w: unexpected token type", ErrTokenInvalid)
	}
	return payload, nil
}

// RefreshTokens verifies refreshToken, reloads its subject through the
// configured UserProvider and issues a new pair. No revocation state is
// kept: the presented refresh token stays valid until it expires.
//
// Without a UserProvider it returns ErrEngineNotReady. A subject that no
// longer resolves yields ErrInvalidCredentials.
func (e *Engine) RefreshTokens(ctx context.Context, refreshToken string) (TokenPair, error) {
	if e == nil || e.jwtManager == nil {
		return TokenPair{}, ErrEngineNotReady
	}
	if e.userProvider == nil {
		return TokenPair{}, fmt.Errorf("%w: user provider required for refresh", ErrEngineNotReady)
	}

	payload, err := e.VerifyToken(refreshToken, true)
	if err != nil {
		e.emitAudit(ctx, AuditEvent{EventType: auditEventRefreshRejected}, err)
		return TokenPair{}, err
	}

	user, err := e.userProvider.GetUserByID(ctx, payload.ID)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", payload.ID).Msg("refresh subject lookup failed")
		err = fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		e.emitAudit(ctx, AuditEvent{EventType: auditEventRefreshRejected, Subject: payload.ID}, err)
		return TokenPair{}, err
	}
	if user.ID != payload.ID {
		e.emitAudit(ctx, AuditEvent{EventType: auditEventRefreshRejected, Subject: payload.ID}, ErrInvalidCredentials)
		return TokenPair{}, ErrInvalidCredentials
	}

	pair, err := e.jwtManager.Generate(user.subject())
	if err != nil {
		return TokenPair{}, e.classify("refresh_tokens", err)
	}
	e.metricInc(MetricTokensRefreshed)
	e.emitAudit(ctx, AuditEvent{EventType: auditEventTokensRefreshed, Subject: user.ID}, nil)

	return TokenPair{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}
