// Package config provides YAML configuration parsing for Pulsefeed.
//
// This package enables running Pulsefeed as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Community
//	port: 8080
//	pause_without_viewers: true
//
//	feeds:
//	  - name: Platform Stats
//	    url: ${API_BASE:-http://localhost:3001}/api/stats/platform
//	    kind: platform_stats
//
//	  - name: Status
//	    url: https://status.example.com/summary.json
//	    refresh_interval: 1m
//	    max_retries: 2
//	    selector: page.status
//
//	grids:
//	  - name: Testimonials
//	    url_template: "https://api.example.com/testimonials?locale={{.locale}}"
//	    kind: testimonials
//	    dimensions:
//	      locale: [en, es]
//
// Settings left unset fall back to the kind's cadence (see feeds.Defaults),
// then to the top-level defaults block, then to the SDK defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/pulsefeed/feeds"
)

// minRefreshInterval is the minimum allowed refresh interval for production configs.
// This prevents accidental DoS of upstream APIs with overly aggressive polling.
const minRefreshInterval = 1 * time.Second

// Config is the root configuration structure for Pulsefeed.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "Pulsefeed" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// MaxConcurrency caps requests in flight across all feeds. Defaults to 10.
	MaxConcurrency int `yaml:"max_concurrency"`

	// NarrowViewport doubles every refresh interval.
	NarrowViewport bool `yaml:"narrow_viewport"`

	// PauseWithoutViewers suspends background refreshes while no dashboard
	// client is connected.
	PauseWithoutViewers bool `yaml:"pause_without_viewers"`

	// Refetch limits manual refetches through the dashboard API.
	Refetch RefetchConfig `yaml:"refetch"`

	// Defaults apply to every feed and grid that does not set its own value.
	Defaults FeedSettings `yaml:"defaults"`

	// Feeds defines individual polled resources.
	Feeds []FeedConfig `yaml:"feeds"`

	// Grids defines feed grids that expand via cartesian product.
	Grids []GridConfig `yaml:"grids"`
}

// RefetchConfig is the per-feed token bucket for manual refetches.
type RefetchConfig struct {
	// Rate is the sustained number of refetches per second. Defaults to 1.
	Rate float64 `yaml:"rate"`

	// Burst is the bucket size. Defaults to 3.
	Burst int `yaml:"burst"`
}

// FeedSettings are the polling settings shared by feeds, grids and the
// defaults block. Zero values mean "not set".
type FeedSettings struct {
	// Kind selects a bundled display model and its cadence:
	// "platform_stats", "team" or "testimonials".
	Kind string `yaml:"kind"`

	// RefreshInterval is the time between background fetches.
	// Must be between 1s and 1h.
	RefreshInterval Duration `yaml:"refresh_interval"`

	// MaxRetries is the retry budget after a failed attempt. 0 disables retries.
	MaxRetries *int `yaml:"max_retries"`

	// RetryDelay is the linear backoff unit: retry n waits n × RetryDelay.
	RetryDelay Duration `yaml:"retry_delay"`

	// Timeout bounds each request.
	Timeout Duration `yaml:"timeout"`

	// Enabled turns polling on or off. Defaults to true.
	Enabled *bool `yaml:"enabled"`

	// Headers are custom HTTP headers sent with each request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Labels are metadata key-value pairs for grouping/filtering.
	Labels map[string]string `yaml:"labels"`

	// Selector is a dot-separated path narrowing the payload,
	// e.g. "data.stats" or "items.0".
	Selector string `yaml:"selector"`
}

// FeedConfig defines a single polled resource.
type FeedConfig struct {
	// Name is the display name shown in the dashboard. Must be unique.
	Name string `yaml:"name"`

	// URL is the resource URL.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	FeedSettings `yaml:",inline"`
}

// GridConfig defines a feed grid that expands via cartesian product.
//
// For example, with dimensions {org: [a, b], locale: [en, es]},
// the grid expands to 4 feeds: a/en, a/es, b/en, b/es.
type GridConfig struct {
	// Name is the base name for generated feeds.
	Name string `yaml:"name"`

	// URLTemplate is a Go template for generating feed URLs.
	// Dimension keys are available as template variables: {{.org}}, {{.locale}}
	// Supports environment variable substitution in the template.
	URLTemplate string `yaml:"url_template"`

	// Dimensions maps dimension names to their possible values.
	// The cartesian product of all dimensions generates the feeds.
	Dimensions map[string][]string `yaml:"dimensions"`

	FeedSettings `yaml:",inline"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envRef matches ${NAME} and ${NAME:-fallback}. Submatch 2 is absent
// when no fallback is given and empty for ${NAME:-}.
var envRef = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnvVars substitutes environment references in s. A variable that
// is set, even to "", wins over its fallback; an unset variable without a
// fallback is an error.
func expandEnvVars(s string) (string, error) {
	var b strings.Builder
	last := 0
	for _, m := range envRef.FindAllStringSubmatchIndex(s, -1) {
		b.WriteString(s[last:m[0]])
		last = m[1]

		name := s[m[2]:m[3]]
		if v, ok := os.LookupEnv(name); ok {
			b.WriteString(v)
			continue
		}
		if m[4] < 0 {
			return "", fmt.Errorf("environment variable %q is not set", name)
		}
		b.WriteString(s[m[4]:m[5]])
	}
	b.WriteString(s[last:])
	return b.String(), nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in URL, URLTemplate, and Header values.
// Defaults are applied for Port (8080), MaxConcurrency (10) and the
// refetch limit (1/s, burst 3).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = 10
	}
	if cfg.Refetch.Rate == 0 {
		cfg.Refetch.Rate = 1
	}
	if cfg.Refetch.Burst == 0 {
		cfg.Refetch.Burst = 3
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency cannot be negative, got %d", c.MaxConcurrency)
	}
	if c.Refetch.Rate < 0 {
		return fmt.Errorf("refetch.rate cannot be negative, got %g", c.Refetch.Rate)
	}
	if c.Refetch.Burst < 0 {
		return fmt.Errorf("refetch.burst cannot be negative, got %d", c.Refetch.Burst)
	}

	if err := c.Defaults.expandAndValidate("defaults"); err != nil {
		return err
	}

	names := make(map[string]struct{})

	for i := range c.Feeds {
		f := &c.Feeds[i]

		if f.Name == "" {
			return fmt.Errorf("feeds[%d]: name is required", i)
		}
		ctx := fmt.Sprintf("feeds[%d] (%s)", i, f.Name)

		if _, dup := names[f.Name]; dup {
			return fmt.Errorf("%s: duplicate feed name", ctx)
		}
		names[f.Name] = struct{}{}

		if f.URL == "" {
			return fmt.Errorf("%s: url is required", ctx)
		}
		expanded, err := expandEnvVars(f.URL)
		if err != nil {
			return fmt.Errorf("%s: url: %w", ctx, err)
		}
		f.URL = expanded

		parsedURL, err := url.Parse(f.URL)
		if err != nil {
			return fmt.Errorf("%s: invalid url: %w", ctx, err)
		}
		if parsedURL.Scheme == "" {
			return fmt.Errorf("%s: url must have a scheme (http:// or https://)", ctx)
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("%s: url scheme must be http or https, got %q", ctx, parsedURL.Scheme)
		}

		if err := f.FeedSettings.expandAndValidate(ctx); err != nil {
			return err
		}
	}

	for i := range c.Grids {
		g := &c.Grids[i]

		if g.Name == "" {
			return fmt.Errorf("grids[%d]: name is required", i)
		}
		ctx := fmt.Sprintf("grids[%d] (%s)", i, g.Name)

		if g.URLTemplate == "" {
			return fmt.Errorf("%s: url_template is required", ctx)
		}
		expanded, err := expandEnvVars(g.URLTemplate)
		if err != nil {
			return fmt.Errorf("%s: url_template: %w", ctx, err)
		}
		g.URLTemplate = expanded

		// fail fast before SDK tries to use invalid template
		if _, err := template.New("").Parse(g.URLTemplate); err != nil {
			return fmt.Errorf("%s: invalid url_template: %w", ctx, err)
		}

		if len(g.Dimensions) == 0 {
			return fmt.Errorf("%s: at least one dimension is required", ctx)
		}
		for dimName, dimValues := range g.Dimensions {
			if len(dimValues) == 0 {
				return fmt.Errorf("%s: dimension %q has no values", ctx, dimName)
			}
			seen := make(map[string]struct{}, len(dimValues))
			for _, v := range dimValues {
				if _, exists := seen[v]; exists {
					return fmt.Errorf("%s: dimension %q has duplicate value %q", ctx, dimName, v)
				}
				seen[v] = struct{}{}
			}
		}

		if err := g.FeedSettings.expandAndValidate(ctx); err != nil {
			return err
		}
	}

	if len(c.Feeds) == 0 && len(c.Grids) == 0 {
		return errors.New("at least one feed or grid must be defined")
	}

	return nil
}

// expandAndValidate checks one settings block. ctx prefixes error messages.
func (s *FeedSettings) expandAndValidate(ctx string) error {
	if s.Kind != "" && !feeds.Known(s.Kind) {
		return fmt.Errorf("%s: unknown kind %q (expected %q, %q or %q)",
			ctx, s.Kind, feeds.KindPlatformStats, feeds.KindTeam, feeds.KindTestimonials)
	}

	for k, v := range s.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("%s: headers[%s]: %w", ctx, k, err)
		}
		s.Headers[k] = expanded
	}

	if s.RefreshInterval != 0 {
		if s.RefreshInterval.Duration() < minRefreshInterval {
			return fmt.Errorf("%s: refresh_interval must be at least %s, got %s",
				ctx, minRefreshInterval, s.RefreshInterval.Duration())
		}
		if s.RefreshInterval.Duration() > time.Hour {
			return fmt.Errorf("%s: refresh_interval must not exceed 1h, got %s",
				ctx, s.RefreshInterval.Duration())
		}
	}

	if s.MaxRetries != nil && *s.MaxRetries < 0 {
		return fmt.Errorf("%s: max_retries cannot be negative, got %d", ctx, *s.MaxRetries)
	}

	if s.RetryDelay < 0 {
		return fmt.Errorf("%s: retry_delay cannot be negative, got %s", ctx, s.RetryDelay.Duration())
	}

	if s.Timeout != 0 {
		if s.Timeout.Duration() < 0 {
			return fmt.Errorf("%s: timeout cannot be negative, got %s", ctx, s.Timeout.Duration())
		}
		if s.Timeout.Duration() < time.Second {
			return fmt.Errorf("%s: timeout must be at least 1s if specified, got %s",
				ctx, s.Timeout.Duration())
		}
	}

	return nil
}
