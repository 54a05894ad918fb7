// Package otp issues and verifies one-time numeric codes delivered over email
// or SMS.
//
// # State machine
//
// Each (channel, purpose, identifier) key moves through
//
//	Absent → Active(attempts=0) → Consumed | Expired | Locked
//
// [Manager.Send] writes an Active record and dispatches the code.
// [Manager.Verify] consumes it on a match, counts a mismatch, and deletes it
// on expiry or once the attempt budget is spent. Every terminal path removes
// the record, so a code can never be accepted twice.
//
// # Storage
//
// Records are versioned binary values in a store.TimedKeyStore under
// otp:<channel>:<purpose>:<identifier>. Only the SHA-256 digest of the code is
// persisted and comparisons are constant-time. Attempt increments and
// consumption go through CompareAndSwap/CompareAndDelete, so concurrent wrong
// guesses are all counted.
//
// # What this package must NOT do
//
//   - Log or return plaintext codes.
//   - Rate-limit identifiers. That belongs to the caller.
//   - Import goCred.
package otp
