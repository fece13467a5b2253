// Package poller implements the polling engine behind pulsefeed.
//
// An [Engine] keeps one remote JSON resource fresh: it fetches on start,
// refetches on a fixed interval, retries failures with linear backoff,
// pauses while its [Environment] reports the host hidden, and tracks
// staleness. Every state change is published as an immutable [State]
// snapshot through [Hooks].
//
// The main components are:
//
//   - [Engine]: the per-resource state machine and its event loop
//   - [Client] and [HTTPFetcher]: pooled HTTP transport
//   - [Limiter]: caps concurrent requests across engines
//   - [Normalize]: unwraps {"success": true, "data": ...} envelopes
//
// Users of the pulsefeed library should not need this package directly;
// the public API lives in the root package.
package poller
