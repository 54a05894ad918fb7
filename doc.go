// Package goCred provides an identity-verification and credential-lifecycle engine:
// bcrypt password hashing and strength checks, one-time codes over email and SMS,
// HS256 access/refresh token pairs, fixed-window failed-attempt limiting, and
// opaque session identifiers.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goCred is the public surface. It exposes [Engine], [Builder], [Config], the error kinds
// and value types. Each capability lives in its own package (password, otp, jwt,
// internal/rate, store) and none of them calls another; the Engine composes them and
// callers compose Engine operations into their own flows (for example
// CheckRateLimit, VerifyPassword, then RecordFailedAttempt or ClearFailedAttempts).
//
// State that must survive between calls (pending OTP challenges and failed-attempt
// windows) lives in a [store.TimedKeyStore]. The in-memory store serves a single
// process; deployments with several instances use the Redis or PostgreSQL store.
//
// # What this package must NOT do
//
//   - Persist user records, serve HTTP routes, or deliver email/SMS itself.
//   - Log or audit OTP codes, passwords or tokens.
//   - Hold package-level mutable state; every Engine is constructed explicitly.
//   - Import any sub-package that re-imports goCred (no import cycles).
package goCred
