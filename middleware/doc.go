// Package middleware exposes net/http adapters that put goCred.Engine checks
// in front of handlers.
//
// # Guards
//
//   - [RequireAccessToken]: stateless access token verification, no store call.
//   - [RequireVerified]: access token plus the verified claim.
//   - [RateLimit]: rejects callers whose failure window is exhausted.
//
// Each guard reads the request, calls the Engine, and injects the result into
// the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement credential logic itself; every decision is delegated to the
// Engine and mapped to a status with goCred.StatusCode.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Engine).
//   - Record failures; handlers decide what counts as a failed attempt.
//   - Write response bodies that reveal why a token was rejected.
package middleware
