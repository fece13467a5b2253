package pulsefeed

import (
	"errors"
	"time"
)

// sourceConfig holds mutable state during source construction.
type sourceConfig struct {
	kind            string
	labels          map[string]string
	headers         map[string]string
	refreshInterval time.Duration
	maxRetries      int
	retryDelay      time.Duration
	timeout         time.Duration
	enabled         bool
	selector        Selector
}

// SourceOption is a function that configures a [Source] during construction.
// Options return an error if validation fails.
type SourceOption func(*sourceConfig) error

// WithLabels adds metadata labels to the source for grouping and filtering.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	src, err := pulsefeed.NewSource("Team", url,
//	    pulsefeed.WithLabels("env", "production", "page", "about"),
//	)
func WithLabels(keyValues ...string) SourceOption {
	return func(cfg *sourceConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithLabels requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.labels[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithHeaders adds custom HTTP headers to every request for this source.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	src, err := pulsefeed.NewSource("Stats", url,
//	    pulsefeed.WithHeaders("Authorization", "Bearer token123"),
//	)
func WithHeaders(keyValues ...string) SourceOption {
	return func(cfg *sourceConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithRefreshInterval sets the polling cadence. Defaults to 30 seconds.
//
// Returns an error if the duration is zero or negative.
func WithRefreshInterval(d time.Duration) SourceOption {
	return func(cfg *sourceConfig) error {
		if d <= 0 {
			return errors.New("refresh interval must be positive")
		}
		cfg.refreshInterval = d
		return nil
	}
}

// WithMaxRetries sets how many backoff retries follow a failed attempt.
// Zero disables retries. Defaults to 3.
//
// Returns an error if n is negative.
func WithMaxRetries(n int) SourceOption {
	return func(cfg *sourceConfig) error {
		if n < 0 {
			return errors.New("max retries cannot be negative")
		}
		cfg.maxRetries = n
		return nil
	}
}

// WithRetryDelay sets the linear backoff unit: the nth retry waits n times
// this delay. Defaults to 1 second.
//
// Returns an error if the duration is zero or negative.
func WithRetryDelay(d time.Duration) SourceOption {
	return func(cfg *sourceConfig) error {
		if d <= 0 {
			return errors.New("retry delay must be positive")
		}
		cfg.retryDelay = d
		return nil
	}
}

// WithTimeout sets the per-attempt timeout. An attempt that runs longer is
// aborted and counted as a failure. Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) SourceOption {
	return func(cfg *sourceConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithEnabled sets whether pollers start fetching. Defaults to true.
// A disabled poller holds no timers until [Poller.SetEnabled] turns it on.
func WithEnabled(enabled bool) SourceOption {
	return func(cfg *sourceConfig) error {
		cfg.enabled = enabled
		return nil
	}
}

// WithKind sets the dashboard renderer for this source.
//
// Known kinds are "platform_stats", "team" and "testimonials"; any other
// value is shown as raw JSON.
func WithKind(kind string) SourceOption {
	return func(cfg *sourceConfig) error {
		cfg.kind = kind
		return nil
	}
}

// WithSelector narrows each payload to a nested value before it is
// decoded. See [JSONPathSelector].
func WithSelector(s Selector) SourceOption {
	return func(cfg *sourceConfig) error {
		cfg.selector = s
		return nil
	}
}
