// Package rate implements the failed-attempt limiter on top of
// store.TimedKeyStore.
//
// # Window semantics
//
// Fixed window anchored at the first failure: the first failure writes
// {count:1, resetAt:now+window}; later failures inside the window increment
// count in place and keep resetAt. Once now passes resetAt the record reads
// as empty and the next failure opens a new window. Keys use the prefix
// rl:<identifier>.
//
// Increments are Get followed by CompareAndSwap in a bounded retry loop, so
// concurrent failures are never lost.
//
// # What this package must NOT do
//
//   - Decide what counts as a failure. Callers record failures explicitly.
//   - Be imported outside the goCred module.
package rate
