// Package password implements bcrypt password hashing and the password
// strength policy.
//
// # Output format
//
// Hashes use bcrypt's modular crypt format:
//
//	$2a$<cost>$<22-char salt><31-char hash>
//
// [Bcrypt.NeedsRehash] returns true when a stored hash was produced with a
// lower cost than the configured one so the caller can re-hash after the next
// successful verification.
//
// # Architecture boundaries
//
// This package owns hashing, verification and the strength rules. It does not
// decide when a password is checked or what happens after a mismatch.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other goCred package.
//   - Log plaintext passwords.
package password
