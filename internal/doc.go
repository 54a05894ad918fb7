// Package internal contains helpers that are private to goCred: secure random
// generation for OTP codes and session identifiers, and secret digests.
//
// # Sub-packages
//
//   - janitor: scheduled sweep of expired store entries (gocron)
//   - l10n: localized OTP notification text (go-i18n)
//   - rate: failed-attempt fixed-window limiter over store.TimedKeyStore
//   - audit: buffered async delivery of audit events to a Sink
//   - metrics: padded atomic counters and the dispatch latency histogram
//
// # What this package must NOT do
//
//   - Export types that appear in the public goCred API.
//   - Be imported by any package outside the goCred module.
package internal
