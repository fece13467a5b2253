// Package server provides the HTTP server for the feed dashboard and API.
//
// This package handles all HTTP concerns:
//
//   - Dashboard serving: Serves the embedded HTML/CSS/JS dashboard at "/"
//   - REST API: "/api/feeds" for all snapshots, "/api/feeds/{name}" for one
//   - Manual refetch: "POST /api/feeds/{name}/refetch", rate limited per feed
//   - Server-Sent Events: Real-time updates at "/api/sse"
//   - Metrics: Prometheus exposition at "/metrics"
//
// Each SSE connection is a store subscription, which is how the hub counts
// dashboard viewers. The server supports graceful shutdown via context
// cancellation, with a 5-second timeout for in-flight requests.
package server
