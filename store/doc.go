// Package store defines TimedKeyStore, the key-value abstraction with per-entry
// TTL that backs OTP challenges and failed-attempt windows, together with two
// implementations.
//
// # Implementations
//
//   - [Memory] keeps entries in 32 xxhash-selected shards guarded by their own
//     RWMutex. Expired entries are invisible on read and reclaimed by [Memory.Sweep].
//     Suitable for single-instance deployments and tests.
//   - [Redis] stores raw values under a key prefix with native TTLs.
//     CompareAndSwap and CompareAndDelete run as Lua scripts so read-modify-write
//     is atomic across every process sharing the Redis deployment.
//
// A PostgreSQL implementation lives in store/pgstore.
//
// # Atomicity
//
// Callers implement read-modify-write as Get followed by CompareAndSwap in a
// bounded retry loop. A CompareAndSwap that returns false means a concurrent
// writer changed the entry and the caller must re-read.
//
// # What this package must NOT do
//
//   - Interpret stored values. Records are opaque byte slices owned by callers.
//   - Import goCred or any sibling package.
package store
