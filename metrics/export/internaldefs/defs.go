package internaldefs

import (
	goCred "github.com/MrEthical07/goCred"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goCred.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goCred.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: goCred.MetricOTPSent, Name: "gocred_otp_sent_total", Help: "One-time codes stored and dispatched."},
	{ID: goCred.MetricOTPVerified, Name: "gocred_otp_verified_total", Help: "Successful one-time code verifications."},
	{ID: goCred.MetricOTPInvalidCode, Name: "gocred_otp_invalid_code_total", Help: "Mismatched one-time codes."},
	{ID: goCred.MetricOTPExpired, Name: "gocred_otp_expired_total", Help: "Verifications that found an expired code."},
	{ID: goCred.MetricOTPAttemptsExceeded, Name: "gocred_otp_attempts_exceeded_total", Help: "Verifications rejected for a spent attempt budget."},
	{ID: goCred.MetricOTPNotFound, Name: "gocred_otp_not_found_total", Help: "Verifications with no pending code."},
	{ID: goCred.MetricOTPDispatchFailure, Name: "gocred_otp_dispatch_failure_total", Help: "Failed or timed out code deliveries."},
	{ID: goCred.MetricRateLimitHit, Name: "gocred_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: goCred.MetricFailedAttemptRecorded, Name: "gocred_failed_attempt_recorded_total", Help: "Recorded failed attempts."},
	{ID: goCred.MetricFailedAttemptsCleared, Name: "gocred_failed_attempts_cleared_total", Help: "Failed-attempt windows cleared."},
	{ID: goCred.MetricTokensIssued, Name: "gocred_tokens_issued_total", Help: "Issued token pairs."},
	{ID: goCred.MetricTokensRefreshed, Name: "gocred_tokens_refreshed_total", Help: "Token pairs issued by refresh."},
	{ID: goCred.MetricTokenInvalid, Name: "gocred_token_invalid_total", Help: "Rejected tokens."},
	{ID: goCred.MetricTokenExpired, Name: "gocred_token_expired_total", Help: "Expired tokens presented for verification."},
	{ID: goCred.MetricPasswordHashed, Name: "gocred_password_hashed_total", Help: "Produced password hashes."},
	{ID: goCred.MetricPasswordVerifyFailure, Name: "gocred_password_verify_failure_total", Help: "Password verifications that did not match."},
	{ID: goCred.MetricJanitorEvicted, Name: "gocred_janitor_evicted_total", Help: "Expired records removed by the janitor."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goCred.MetricDispatchLatency, Name: "gocred_otp_dispatch_latency_seconds", Help: "OTP dispatch latency histogram."},
}

// AuditDroppedName is the counter for audit events dropped under backpressure.
const AuditDroppedName = "gocred_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// HistogramBounds are the upper bounds, in seconds, of the eight buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix spells HistogramBounds as instrument name suffixes.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, padding with
// zeros and ignoring extra entries.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into the running totals both
// exposition formats expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
