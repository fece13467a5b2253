package poller

import (
	"context"
)

// Limiter bounds the number of concurrent requests across every [Fetcher]
// it wraps. A hub shares one Limiter between all of its engines so that a
// burst of ticks cannot open more than N upstream requests.
type Limiter struct {
	sem chan struct{}
}

// NewLimiter returns a Limiter admitting at most maxConcurrency requests at
// once. A maxConcurrency below 1 is treated as 1.
func NewLimiter(maxConcurrency int) *Limiter {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Limiter{sem: make(chan struct{}, maxConcurrency)}
}

// Wrap returns a Fetcher that waits for a free slot before delegating to
// next. Waiting respects ctx, so a superseded attempt gives up its place.
func (l *Limiter) Wrap(next Fetcher) Fetcher {
	return FetcherFunc(func(ctx context.Context, resource string) ([]byte, error) {
		select {
		case l.sem <- struct{}{}:
		case <-ctx.Done():
			return nil, &TransportError{Err: ctx.Err()}
		}
		defer func() { <-l.sem }()

		return next.Fetch(ctx, resource)
	})
}

// InFlight reports how many requests currently hold a slot.
func (l *Limiter) InFlight() int {
	return len(l.sem)
}

// FetcherFunc adapts a plain function to [Fetcher].
type FetcherFunc func(ctx context.Context, resource string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, resource string) ([]byte, error) {
	return f(ctx, resource)
}
