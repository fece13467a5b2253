package server

import (
	"sync"

	"golang.org/x/time/rate"
)

// feedLimiters hands out one token bucket per feed name.
type feedLimiters struct {
	limit rate.Limit
	burst int

	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

func newFeedLimiters(limit rate.Limit, burst int) *feedLimiters {
	return &feedLimiters{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// allow reports whether a request for name may proceed now.
func (f *feedLimiters) allow(name string) bool {
	return f.get(name).Allow()
}

func (f *feedLimiters) get(name string) *rate.Limiter {
	f.mu.RLock()
	l, ok := f.limiters[name]
	f.mu.RUnlock()
	if ok {
		return l
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	// another request may have created it
	if l, ok = f.limiters[name]; ok {
		return l
	}
	l = rate.NewLimiter(f.limit, f.burst)
	f.limiters[name] = l
	return l
}
