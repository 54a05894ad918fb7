// Package prometheus renders goCred metrics in the Prometheus text exposition
// format.
//
// [New] accepts a [goCred.Engine] and exposes an [http.Handler]. Counter names
// are prefixed gocred_*_total; the single histogram is
// gocred_otp_dispatch_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate engine state.
package prometheus
