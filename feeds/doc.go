// Package feeds turns the raw payloads of the three demo feeds (platform
// statistics, team roster and testimonials) into display models.
//
// Everything here is a pure function of a payload and a reference time, so
// it can run on every poller state change. [Render] dispatches on a source
// kind and is what the dashboard server uses; [Defaults] carries the
// polling cadence each kind is tuned for.
package feeds
