// Package jwt issues and verifies HS256 access and refresh tokens.
//
// Access and refresh tokens are signed with distinct secrets and carry
// non-overlapping claim shapes:
//
//	access:  {id, email, role, verified} + registered claims
//	refresh: {id, tokenType:"refresh"}    + registered claims
//
// Every token carries a random jti. Verification pins the algorithm to HS256,
// requires exp, and honours optional issuer, audience and leeway settings.
// Expired-but-authentic tokens are reported as [ErrExpired]; everything else
// is [ErrInvalid].
package jwt
