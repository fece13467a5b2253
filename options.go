package pulsefeed

import (
	"errors"
	"log/slog"

	"golang.org/x/time/rate"
)

// hubConfig holds mutable state during Hub construction.
type hubConfig struct {
	title               string
	sources             []Source
	port                int
	maxConcurrency      int
	narrow              bool
	pauseWithoutViewers bool
	refetchRate         rate.Limit
	refetchBurst        int
	logger              *slog.Logger
	stateCallbacks      []func(FeedState)
}

// Option is a function that configures a [Hub] during construction.
//
// Options return an error if validation fails.
type Option func(*hubConfig) error

// WithSource adds a single [Source] to the hub.
//
// Can be called multiple times. At least one source must be configured for
// [New] to succeed.
func WithSource(s Source) Option {
	return func(cfg *hubConfig) error {
		cfg.sources = append(cfg.sources, s)
		return nil
	}
}

// WithSources adds multiple sources, for example the output of
// [NewSourceGrid].
//
// Example:
//
//	grid, _ := pulsefeed.NewSourceGrid("Stats", ...)
//	hub, err := pulsefeed.New(
//	    pulsefeed.WithSources(grid...),
//	)
func WithSources(sources ...Source) Option {
	return func(cfg *hubConfig) error {
		cfg.sources = append(cfg.sources, sources...)
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard server.
// Defaults to 8080.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *hubConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithMaxConcurrency caps the number of requests in flight across all
// feeds. Attempts beyond the cap wait for a slot; the wait counts against
// the attempt's timeout. Defaults to 10.
func WithMaxConcurrency(n int) Option {
	return func(cfg *hubConfig) error {
		if n <= 0 {
			return errors.New("max concurrency must be positive")
		}
		cfg.maxConcurrency = n
		return nil
	}
}

// WithNarrowViewport marks the host as mobile-class, doubling every
// feed's refresh interval.
func WithNarrowViewport(narrow bool) Option {
	return func(cfg *hubConfig) error {
		cfg.narrow = narrow
		return nil
	}
}

// WithPauseWithoutViewers suspends background refreshes while no dashboard
// client is connected to the event stream. The first viewer to connect
// triggers one immediate fetch per feed.
func WithPauseWithoutViewers(pause bool) Option {
	return func(cfg *hubConfig) error {
		cfg.pauseWithoutViewers = pause
		return nil
	}
}

// WithRefetchRate limits manual refetches through the dashboard API, per
// feed. Requests over the limit get 429 Too Many Requests.
func WithRefetchRate(limit rate.Limit, burst int) Option {
	return func(cfg *hubConfig) error {
		if limit <= 0 {
			return errors.New("refetch rate must be positive")
		}
		if burst < 1 {
			return errors.New("refetch burst must be at least 1")
		}
		cfg.refetchRate = limit
		cfg.refetchBurst = burst
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the hub and its pollers.
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *hubConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithStateCallback registers a function called on every feed state change.
//
// Callbacks run on the reporting poller's callback goroutine after the
// dashboard store has been updated, so a slow callback delays that feed's
// later callbacks. Panics within callbacks are recovered and logged.
//
// Example:
//
//	hub, err := pulsefeed.New(
//	    pulsefeed.WithSource(stats),
//	    pulsefeed.WithStateCallback(func(fs pulsefeed.FeedState) {
//	        if fs.Health == "outage" {
//	            log.Printf("ALERT: %s is unavailable", fs.Source.Name())
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithStateCallback(cb func(FeedState)) Option {
	return func(cfg *hubConfig) error {
		if cb == nil {
			return nil
		}
		cfg.stateCallbacks = append(cfg.stateCallbacks, cb)
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and header.
//
// If not specified, defaults to "Pulsefeed".
func WithTitle(title string) Option {
	return func(cfg *hubConfig) error {
		cfg.title = title
		return nil
	}
}
