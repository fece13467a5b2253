// Package pulsefeed keeps locally cached views of remote JSON resources
// fresh.
//
// The core type is [Poller], which fetches one resource on start and then
// on a fixed interval. It retries failures with linear backoff, pauses while
// its host is hidden, and reports data that is older than twice the interval
// as stale. Cached data survives failures; callers can tell an outage
// (error, no data) from a degraded feed (error over cached data).
//
// # Quick Start
//
//	src, _ := pulsefeed.NewSource("stats", "https://example.com/api/stats/platform",
//	    pulsefeed.WithRefreshInterval(30*time.Second),
//	    pulsefeed.WithMaxRetries(3),
//	    pulsefeed.WithRetryDelay(2*time.Second),
//	)
//
//	p, _ := pulsefeed.NewPoller[feeds.PlatformStats](src,
//	    pulsefeed.WithObserver(func(s pulsefeed.State[feeds.PlatformStats]) {
//	        if s.HasError() && !s.HasData {
//	            log.Print("stats unavailable: ", s.Error)
//	        }
//	    }),
//	)
//	p.Start(ctx)
//	defer p.Stop()
//
// Responses shaped {"success": true, "data": X} are unwrapped to X; any
// other JSON document is used whole. A [Selector] can narrow the payload
// further.
//
// # Hub
//
// A [Hub] runs one poller per [Source] and serves their state on an
// embedded dashboard with a JSON API, a Server-Sent Events stream, a manual
// refetch endpoint and Prometheus metrics:
//
//	hub, _ := pulsefeed.New(
//	    pulsefeed.WithSources(sources...),
//	    pulsefeed.WithPort(9090),
//	    pulsefeed.WithPauseWithoutViewers(true),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//	hub.Start(ctx) // blocks until ctx is cancelled
//
// Sources can be declared in YAML and loaded with the config package, or
// expanded from a URL template with [NewSourceGrid].
//
// # Architecture
//
//   - internal/poller: the polling state machine, HTTP transport and envelope handling
//   - internal/store: in-memory snapshot store with pub/sub
//   - internal/server: HTTP server with REST API and Server-Sent Events
//   - internal/metrics: Prometheus collectors
//   - feeds: display models for the bundled feed kinds
//   - dashboard: embedded web UI assets
package pulsefeed
