package pulsefeed

import (
	"errors"
	"net/url"
	"time"
)

// Source defaults. They match the engine's own defaults so that a bare
// Source behaves like the classic polling hook.
const (
	defaultRefreshInterval = 30 * time.Second
	defaultMaxRetries      = 3
	defaultRetryDelay      = time.Second
	defaultSourceTimeout   = 10 * time.Second
)

// Source describes a remote JSON resource and its polling policy.
//
// Source is immutable after creation via [NewSource]. All fields are
// private with getter methods that return copies of mutable data (maps),
// ensuring the source cannot be modified after construction.
//
// Sources are configured using the functional options pattern with
// [SourceOption] functions such as [WithRefreshInterval], [WithMaxRetries],
// [WithRetryDelay], [WithTimeout], [WithHeaders] and [WithKind].
type Source struct {
	name            string
	url             string
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

// Name returns the source's display name.
// The name identifies the feed in the dashboard, the API and logs.
func (s Source) Name() string {
	return s.name
}

// URL returns the polled resource.
func (s Source) URL() string {
	return s.url
}

// Kind returns the renderer key used by the dashboard, or "" for raw JSON.
func (s Source) Kind() string {
	return s.kind
}

// Labels returns a copy of the source's labels.
// Returns nil if no labels are set.
func (s Source) Labels() map[string]string {
	return copyMap(s.labels)
}

// Headers returns a copy of the custom HTTP headers sent with every request.
// Returns nil if no custom headers are set.
func (s Source) Headers() map[string]string {
	return copyMap(s.headers)
}

// RefreshInterval returns the nominal polling cadence.
// Narrow-viewport hosts poll at twice this interval.
func (s Source) RefreshInterval() time.Duration {
	return s.refreshInterval
}

// MaxRetries returns how many backoff retries follow a failed attempt.
func (s Source) MaxRetries() int {
	return s.maxRetries
}

// RetryDelay returns the linear backoff unit.
func (s Source) RetryDelay() time.Duration {
	return s.retryDelay
}

// Timeout returns the per-attempt timeout.
func (s Source) Timeout() time.Duration {
	return s.timeout
}

// Enabled reports whether pollers built from this source start fetching.
func (s Source) Enabled() bool {
	return s.enabled
}

// Selector returns the payload selector, or nil.
func (s Source) Selector() Selector {
	return s.selector
}

// NewSource creates a [Source] with the given name, URL, and options.
//
// The rawURL parameter must be a valid URL with a scheme (http:// or https://).
// Defaults: 30s refresh interval, 3 retries, 1s retry delay, 10s timeout,
// enabled.
//
// Returns an error if the name is empty or the URL is invalid.
//
// Example:
//
//	src, err := pulsefeed.NewSource("Platform Stats", "https://example.com/api/stats/platform",
//	    pulsefeed.WithKind("platform_stats"),
//	    pulsefeed.WithRetryDelay(2 * time.Second),
//	)
func NewSource(name, rawURL string, opts ...SourceOption) (Source, error) {
	if name == "" {
		return Source{}, errors.New("source name cannot be empty")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Source{}, errors.New("invalid URL: " + err.Error())
	}
	if parsedURL.Scheme == "" {
		return Source{}, errors.New("URL must have a scheme (http:// or https://)")
	}

	cfg := &sourceConfig{
		labels:          make(map[string]string),
		headers:         make(map[string]string),
		refreshInterval: defaultRefreshInterval,
		maxRetries:      defaultMaxRetries,
		retryDelay:      defaultRetryDelay,
		timeout:         defaultSourceTimeout,
		enabled:         true,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Source{}, err
		}
	}

	return Source{
		name:            name,
		url:             rawURL,
		kind:            cfg.kind,
		labels:          cfg.labels,
		headers:         cfg.headers,
		refreshInterval: cfg.refreshInterval,
		maxRetries:      cfg.maxRetries,
		retryDelay:      cfg.retryDelay,
		timeout:         cfg.timeout,
		enabled:         cfg.enabled,
		selector:        cfg.selector,
	}, nil
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
