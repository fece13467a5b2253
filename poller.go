package pulsefeed

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jpalmerr/pulsefeed/internal/poller"
)

// ErrStopped is returned by [Poller.Refetch] after [Poller.Stop].
var ErrStopped = poller.ErrStopped

// StatusError is the error passed to OnError callbacks when the resource
// answered with a non-2xx status. Callers that need the code can use
// errors.As; the poller's state only carries the message.
type StatusError = poller.StatusError

// Fetcher issues the network request for a resource and returns the raw
// response body. The default Fetcher performs an HTTP GET.
type Fetcher interface {
	Fetch(ctx context.Context, resource string) ([]byte, error)
}

// FetcherFunc adapts a plain function to [Fetcher].
type FetcherFunc func(ctx context.Context, resource string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, resource string) ([]byte, error) {
	return f(ctx, resource)
}

// Poller keeps one remote JSON resource fresh.
//
// A Poller fetches immediately on [Poller.Start], then every refresh
// interval. Failed attempts are retried with linear backoff, the timer is
// paused while the [Environment] is hidden, and every state change is
// published to observers as a [State] snapshot.
//
// Responses shaped like {"success": true, "data": X} are unwrapped to X;
// any other JSON body is decoded whole into T.
//
// All methods are safe for concurrent use.
type Poller[T any] struct {
	source Source
	engine *poller.Engine[T]
}

// NewPoller creates a stopped [Poller] for src.
//
// Example:
//
//	src, _ := pulsefeed.NewSource("stats", "https://example.com/api/stats/platform")
//	p, err := pulsefeed.NewPoller[feeds.PlatformStats](src,
//	    pulsefeed.WithObserver(func(s pulsefeed.State[feeds.PlatformStats]) {
//	        fmt.Println(s.Data.TotalMembers, s.IsStale)
//	    }),
//	)
//	p.Start(ctx)
//	defer p.Stop()
func NewPoller[T any](src Source, opts ...PollerOption[T]) (*Poller[T], error) {
	if src.url == "" {
		return nil, errors.New("source is not initialised; use NewSource")
	}

	cfg := &pollerConfig[T]{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	fetcher := cfg.fetcher
	if fetcher == nil {
		fetcher = &poller.HTTPFetcher{
			Client:  cfg.client,
			Headers: src.Headers(),
			Timeout: src.timeout,
		}
	}
	if cfg.limiter != nil {
		fetcher = cfg.limiter.Wrap(fetcher)
	}

	maxRetries := src.maxRetries
	if maxRetries == 0 {
		// the engine reads zero as "use the default"
		maxRetries = -1
	}

	engineCfg := poller.Config{
		Resource:           src.url,
		RefreshInterval:    src.refreshInterval,
		Enabled:            src.enabled,
		MaxRetries:         maxRetries,
		RetryDelay:         src.retryDelay,
		Timeout:            src.timeout,
		StaleCheckInterval: cfg.staleCheckInterval,
	}

	engineOpts := []poller.Option[T]{
		poller.WithHooks(cfg.hooks()),
	}
	if cfg.env != nil {
		engineOpts = append(engineOpts, poller.WithEnvironment[T](cfg.env))
	}
	if cfg.clock != nil {
		engineOpts = append(engineOpts, poller.WithClock[T](cfg.clock))
	}
	logger := cfg.logger
	if logger != nil {
		engineOpts = append(engineOpts, poller.WithLogger[T](logger.With("feed", src.name)))
	}
	if decode := cfg.decoder(src.selector); decode != nil {
		engineOpts = append(engineOpts, poller.WithDecoder(decode))
	}

	engine, err := poller.NewEngine[T](engineCfg, fetcher, engineOpts...)
	if err != nil {
		return nil, err
	}

	return &Poller[T]{source: src, engine: engine}, nil
}

// Start begins polling in the background and returns immediately.
//
// Cancelling ctx ends polling, as does [Poller.Stop]. Start is a no-op
// after the first call or after Stop.
func (p *Poller[T]) Start(ctx context.Context) {
	p.engine.Start(ctx)
}

// Stop cancels all timers, pending retries and in-flight attempts. No state
// change or callback takes effect once Stop has returned. Stop is
// idempotent and never blocks on network activity.
func (p *Poller[T]) Stop() {
	p.engine.Stop()
}

// Refetch fetches now, resetting the retry counter and cancelling any
// pending retry. It returns once that attempt has resolved, so the new
// State is already visible; observers receive it asynchronously. The
// refresh timer keeps its phase. Refetch may be called from a callback.
//
// Fetch failures are reported through State and OnError, not through the
// returned error, which is only set for ctx cancellation or [ErrStopped].
func (p *Poller[T]) Refetch(ctx context.Context) error {
	return p.engine.Refetch(ctx)
}

// UpdateData replaces the cached data without a network call, marking it
// fresh as of now. Loading flags and the retry counter are untouched.
func (p *Poller[T]) UpdateData(v T) {
	p.engine.UpdateData(v)
}

// SetEnabled turns fetching on or off. Disabling releases every timer and
// discards the in-flight attempt; enabling again starts a fresh initial
// load. Cached data is kept across both.
func (p *Poller[T]) SetEnabled(enabled bool) {
	p.engine.SetEnabled(enabled)
}

// State returns the current snapshot.
func (p *Poller[T]) State() State[T] {
	return fromEngineState(p.engine.State())
}

// Source returns the source this poller was built from.
func (p *Poller[T]) Source() Source {
	return p.source
}

// Interval returns the effective refresh interval.
func (p *Poller[T]) Interval() time.Duration {
	return p.engine.Interval()
}

// Done returns a channel closed when the polling goroutine has exited and
// released its timers.
func (p *Poller[T]) Done() <-chan struct{} {
	return p.engine.Done()
}

// decodeWith builds the engine decoder for a selector and a final decode step.
func decodeWith[T any](sel Selector, decode func(json.RawMessage) (T, error)) func(json.RawMessage) (T, error) {
	return func(payload json.RawMessage) (T, error) {
		if sel != nil {
			selected, err := sel(payload)
			if err != nil {
				var zero T
				return zero, &poller.DecodeError{Err: err}
			}
			payload = selected
		}
		return decode(payload)
	}
}
