package pulsefeed

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jpalmerr/pulsefeed/internal/poller"
)

// pollerConfig holds mutable state during poller construction.
type pollerConfig[T any] struct {
	env                Environment
	clock              clockwork.Clock
	logger             *slog.Logger
	fetcher            Fetcher
	observers          []func(State[T])
	onSuccess          []func(T)
	onError            []func(error)
	staleCheckInterval time.Duration
	decode             func(json.RawMessage) (T, error)

	// set by the hub
	client  *poller.Client
	limiter *poller.Limiter
	probes  poller.Hooks[T]
}

// PollerOption configures a [Poller] during construction.
type PollerOption[T any] func(*pollerConfig[T]) error

// WithEnvironment sets the host probe. Defaults to a visible, wide host.
func WithEnvironment[T any](env Environment) PollerOption[T] {
	return func(cfg *pollerConfig[T]) error {
		if env == nil {
			return errors.New("environment cannot be nil")
		}
		cfg.env = env
		return nil
	}
}

// WithClock sets the clock behind timers and timestamps. Tests pass a
// clockwork.FakeClock to drive the poller deterministically.
func WithClock[T any](c clockwork.Clock) PollerOption[T] {
	return func(cfg *pollerConfig[T]) error {
		if c == nil {
			return errors.New("clock cannot be nil")
		}
		cfg.clock = c
		return nil
	}
}

// WithPollerLogger sets the logger. Defaults to [slog.Default].
func WithPollerLogger[T any](logger *slog.Logger) PollerOption[T] {
	return func(cfg *pollerConfig[T]) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithFetcher replaces the HTTP transport. The source's headers and timeout
// only apply to the default transport; the per-attempt timeout still bounds
// a custom Fetcher through its context.
func WithFetcher[T any](f Fetcher) PollerOption[T] {
	return func(cfg *pollerConfig[T]) error {
		if f == nil {
			return errors.New("fetcher cannot be nil")
		}
		cfg.fetcher = f
		return nil
	}
}

// WithObserver registers a callback for every state change.
//
// Observers and the other callbacks run one at a time, in order, on a
// goroutine of their own, so a slow observer delays later callbacks but
// never polling. They may call back into the poller, Refetch included.
// Panics are recovered and logged.
// Nil observers are silently ignored.
func WithObserver[T any](fn func(State[T])) PollerOption[T] {
	return func(cfg *pollerConfig[T]) error {
		if fn != nil {
			cfg.observers = append(cfg.observers, fn)
		}
		return nil
	}
}

// WithOnSuccess registers a callback invoked once per successful attempt.
func WithOnSuccess[T any](fn func(T)) PollerOption[T] {
	return func(cfg *pollerConfig[T]) error {
		if fn != nil {
			cfg.onSuccess = append(cfg.onSuccess, fn)
		}
		return nil
	}
}

// WithOnError registers a callback invoked once per failed attempt.
func WithOnError[T any](fn func(error)) PollerOption[T] {
	return func(cfg *pollerConfig[T]) error {
		if fn != nil {
			cfg.onError = append(cfg.onError, fn)
		}
		return nil
	}
}

// WithStaleCheckInterval sets how often the staleness watchdog runs.
// Defaults to 5 seconds.
func WithStaleCheckInterval[T any](d time.Duration) PollerOption[T] {
	return func(cfg *pollerConfig[T]) error {
		if d <= 0 {
			return errors.New("stale check interval must be positive")
		}
		cfg.staleCheckInterval = d
		return nil
	}
}

// WithDecoder replaces JSON decoding of the (unwrapped, selected) payload.
func WithDecoder[T any](fn func(json.RawMessage) (T, error)) PollerOption[T] {
	return func(cfg *pollerConfig[T]) error {
		if fn == nil {
			return errors.New("decoder cannot be nil")
		}
		cfg.decode = fn
		return nil
	}
}

// decoder returns the engine decoder, or nil to keep the engine default.
func (cfg *pollerConfig[T]) decoder(sel Selector) func(json.RawMessage) (T, error) {
	if sel == nil && cfg.decode == nil {
		return nil
	}
	decode := cfg.decode
	if decode == nil {
		decode = poller.DecodeJSON[T]
	}
	return decodeWith(sel, decode)
}

// hooks fans the engine callbacks out to every registered function.
func (cfg *pollerConfig[T]) hooks() poller.Hooks[T] {
	h := cfg.probes

	if len(cfg.observers) > 0 {
		observers := cfg.observers
		h.OnState = func(s poller.State[T]) {
			pub := fromEngineState(s)
			for _, fn := range observers {
				fn(pub)
			}
		}
	}
	if len(cfg.onSuccess) > 0 {
		fns := cfg.onSuccess
		h.OnSuccess = func(v T) {
			for _, fn := range fns {
				fn(v)
			}
		}
	}
	if len(cfg.onError) > 0 {
		fns := cfg.onError
		h.OnError = func(err error) {
			for _, fn := range fns {
				fn(err)
			}
		}
	}
	return h
}

// withTransport shares the hub's connection pool, concurrency limit and
// metrics probes with a poller.
func withTransport[T any](client *poller.Client, limiter *poller.Limiter, probes poller.Hooks[T]) PollerOption[T] {
	return func(cfg *pollerConfig[T]) error {
		cfg.client = client
		cfg.limiter = limiter
		cfg.probes = probes
		return nil
	}
}
