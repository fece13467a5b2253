package config

import (
	"sort"

	"golang.org/x/time/rate"

	"github.com/jpalmerr/pulsefeed"
	"github.com/jpalmerr/pulsefeed/feeds"
)

// BuildSources converts parsed configuration into SDK Source objects.
//
// It processes both direct feeds and grids, returning a combined slice.
// Grid dimensions are expanded via cartesian product.
func BuildSources(cfg *Config) ([]pulsefeed.Source, error) {
	var sources []pulsefeed.Source

	for _, fc := range cfg.Feeds {
		src, err := buildSource(fc, cfg.Defaults)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	for _, gc := range cfg.Grids {
		gridSources, err := buildGridSources(gc, cfg.Defaults)
		if err != nil {
			return nil, err
		}
		sources = append(sources, gridSources...)
	}

	return sources, nil
}

// HubOptions converts the top-level settings into hub options. Sources are
// not included; pass the result of [BuildSources] with [pulsefeed.WithSources].
func HubOptions(cfg *Config) []pulsefeed.Option {
	opts := []pulsefeed.Option{
		pulsefeed.WithPort(cfg.Port),
		pulsefeed.WithNarrowViewport(cfg.NarrowViewport),
		pulsefeed.WithPauseWithoutViewers(cfg.PauseWithoutViewers),
	}
	if cfg.Title != "" {
		opts = append(opts, pulsefeed.WithTitle(cfg.Title))
	}
	if cfg.MaxConcurrency > 0 {
		opts = append(opts, pulsefeed.WithMaxConcurrency(cfg.MaxConcurrency))
	}
	if cfg.Refetch.Rate > 0 && cfg.Refetch.Burst > 0 {
		opts = append(opts, pulsefeed.WithRefetchRate(rate.Limit(cfg.Refetch.Rate), cfg.Refetch.Burst))
	}
	return opts
}

// resolve layers s over the kind's cadence and then over defaults.
func resolve(s, defaults FeedSettings) FeedSettings {
	out := s
	if out.Kind == "" {
		out.Kind = defaults.Kind
	}

	if c, ok := feeds.Defaults(out.Kind); ok {
		if out.RefreshInterval == 0 {
			out.RefreshInterval = Duration(c.RefreshInterval)
		}
		if out.MaxRetries == nil {
			n := c.MaxRetries
			out.MaxRetries = &n
		}
		if out.RetryDelay == 0 {
			out.RetryDelay = Duration(c.RetryDelay)
		}
	}

	if out.RefreshInterval == 0 {
		out.RefreshInterval = defaults.RefreshInterval
	}
	if out.MaxRetries == nil {
		out.MaxRetries = defaults.MaxRetries
	}
	if out.RetryDelay == 0 {
		out.RetryDelay = defaults.RetryDelay
	}
	if out.Timeout == 0 {
		out.Timeout = defaults.Timeout
	}
	if out.Enabled == nil {
		out.Enabled = defaults.Enabled
	}
	if out.Selector == "" {
		out.Selector = defaults.Selector
	}
	out.Headers = mergeMaps(defaults.Headers, s.Headers)
	out.Labels = mergeMaps(defaults.Labels, s.Labels)
	return out
}

// buildSource converts a single FeedConfig to an SDK Source.
func buildSource(fc FeedConfig, defaults FeedSettings) (pulsefeed.Source, error) {
	s := resolve(fc.FeedSettings, defaults)
	var opts []pulsefeed.SourceOption

	if s.Kind != "" {
		opts = append(opts, pulsefeed.WithKind(s.Kind))
	}
	if s.RefreshInterval != 0 {
		opts = append(opts, pulsefeed.WithRefreshInterval(s.RefreshInterval.Duration()))
	}
	if s.MaxRetries != nil {
		opts = append(opts, pulsefeed.WithMaxRetries(*s.MaxRetries))
	}
	if s.RetryDelay != 0 {
		opts = append(opts, pulsefeed.WithRetryDelay(s.RetryDelay.Duration()))
	}
	if s.Timeout != 0 {
		opts = append(opts, pulsefeed.WithTimeout(s.Timeout.Duration()))
	}
	if s.Enabled != nil {
		opts = append(opts, pulsefeed.WithEnabled(*s.Enabled))
	}
	if len(s.Headers) > 0 {
		opts = append(opts, pulsefeed.WithHeaders(mapToKeyValuePairs(s.Headers)...))
	}
	if len(s.Labels) > 0 {
		opts = append(opts, pulsefeed.WithLabels(mapToKeyValuePairs(s.Labels)...))
	}
	if s.Selector != "" {
		opts = append(opts, pulsefeed.WithSelector(pulsefeed.JSONPathSelector(s.Selector)))
	}

	return pulsefeed.NewSource(fc.Name, fc.URL, opts...)
}

// buildGridSources expands a GridConfig into multiple sources.
func buildGridSources(gc GridConfig, defaults FeedSettings) ([]pulsefeed.Source, error) {
	s := resolve(gc.FeedSettings, defaults)
	opts := []pulsefeed.GridOption{
		pulsefeed.WithURLTemplate(gc.URLTemplate),
		pulsefeed.WithDimensions(gc.Dimensions),
	}

	if s.Kind != "" {
		opts = append(opts, pulsefeed.WithGridKind(s.Kind))
	}
	if s.RefreshInterval != 0 {
		opts = append(opts, pulsefeed.WithGridRefreshInterval(s.RefreshInterval.Duration()))
	}
	if s.MaxRetries != nil {
		opts = append(opts, pulsefeed.WithGridMaxRetries(*s.MaxRetries))
	}
	if s.RetryDelay != 0 {
		opts = append(opts, pulsefeed.WithGridRetryDelay(s.RetryDelay.Duration()))
	}
	if s.Timeout != 0 {
		opts = append(opts, pulsefeed.WithGridTimeout(s.Timeout.Duration()))
	}
	if s.Enabled != nil {
		opts = append(opts, pulsefeed.WithGridEnabled(*s.Enabled))
	}
	if len(s.Headers) > 0 {
		opts = append(opts, pulsefeed.WithGridHeaders(mapToKeyValuePairs(s.Headers)...))
	}
	if len(s.Labels) > 0 {
		opts = append(opts, pulsefeed.WithGridLabels(mapToKeyValuePairs(s.Labels)...))
	}
	if s.Selector != "" {
		opts = append(opts, pulsefeed.WithGridSelector(pulsefeed.JSONPathSelector(s.Selector)))
	}

	return pulsefeed.NewSourceGrid(gc.Name, opts...)
}

// mergeMaps returns base overlaid with override; nil when both are empty.
func mergeMaps(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
