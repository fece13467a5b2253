// Package dashboard provides the embedded web UI assets for Pulsefeed.
//
// This package uses Go's embed directive to include the dashboard HTML, CSS,
// and JavaScript at compile time. This enables single-binary deployment
// without external asset files.
//
// The embedded assets are served by the server package at the root path ("/").
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Feed cards, live over /api/sse, with manual refetch
//
//go:embed assets/*
var Assets embed.FS
