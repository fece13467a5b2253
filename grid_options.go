package pulsefeed

import (
	"errors"
	"fmt"
	"time"
)

// gridConfig collects what every generated source shares. Source-level
// settings are kept as [SourceOption] values and replayed per combination.
type gridConfig struct {
	urlTemplate string
	dimensions  map[string][]string
	shared      []SourceOption
}

func (cfg *gridConfig) share(opt SourceOption) {
	cfg.shared = append(cfg.shared, opt)
}

// GridOption configures [NewSourceGrid].
type GridOption func(*gridConfig) error

func evenPairs(fn string, keyValues []string) error {
	if len(keyValues)%2 != 0 {
		return fmt.Errorf("%s requires an even number of arguments (key-value pairs)", fn)
	}
	return nil
}

// WithURLTemplate sets the text/template used to build each source URL.
// Dimension keys are the template variables:
//
//	WithURLTemplate("https://example.com/api/team?org={{.org}}&region={{.region}}")
func WithURLTemplate(tmpl string) GridOption {
	return func(cfg *gridConfig) error {
		if tmpl == "" {
			return errors.New("URL template required")
		}
		cfg.urlTemplate = tmpl
		return nil
	}
}

// WithDimensions sets the values to expand. One source is generated per
// element of the cartesian product:
//
//	WithDimensions(map[string][]string{
//	    "env":    {"prod", "staging"},
//	    "region": {"us-east", "eu-west"},
//	})
//
// Every dimension needs at least one value and values must be non-empty.
func WithDimensions(dims map[string][]string) GridOption {
	return func(cfg *gridConfig) error {
		if len(dims) == 0 {
			return errors.New("at least one dimension required")
		}
		for key, vals := range dims {
			if len(vals) == 0 {
				return fmt.Errorf("dimension '%s' has no values", key)
			}
			for i, v := range vals {
				if v == "" {
					return fmt.Errorf("dimension '%s' contains empty value at index %d", key, i)
				}
			}
		}
		cfg.dimensions = dims
		return nil
	}
}

// WithGridLabels adds static labels to every generated source. They win
// over the labels derived from dimension values.
func WithGridLabels(keyValues ...string) GridOption {
	return func(cfg *gridConfig) error {
		if err := evenPairs("WithGridLabels", keyValues); err != nil {
			return err
		}
		cfg.share(WithLabels(keyValues...))
		return nil
	}
}

// WithGridHeaders adds request headers to every generated source.
func WithGridHeaders(keyValues ...string) GridOption {
	return func(cfg *gridConfig) error {
		if err := evenPairs("WithGridHeaders", keyValues); err != nil {
			return err
		}
		cfg.share(WithHeaders(keyValues...))
		return nil
	}
}

// WithGridTimeout sets the per-attempt timeout. Zero keeps the source default.
func WithGridTimeout(d time.Duration) GridOption {
	return func(cfg *gridConfig) error {
		if d < 0 {
			return errors.New("timeout cannot be negative")
		}
		if d > 0 {
			cfg.share(WithTimeout(d))
		}
		return nil
	}
}

// WithGridKind sets the dashboard renderer.
func WithGridKind(kind string) GridOption {
	return func(cfg *gridConfig) error {
		if kind != "" {
			cfg.share(WithKind(kind))
		}
		return nil
	}
}

// WithGridSelector narrows every generated source's payload.
func WithGridSelector(sel Selector) GridOption {
	return func(cfg *gridConfig) error {
		if sel != nil {
			cfg.share(WithSelector(sel))
		}
		return nil
	}
}

// WithGridMaxRetries sets the retry budget.
func WithGridMaxRetries(n int) GridOption {
	return func(cfg *gridConfig) error {
		if n < 0 {
			return errors.New("max retries cannot be negative")
		}
		cfg.share(WithMaxRetries(n))
		return nil
	}
}

// WithGridRetryDelay sets the backoff unit. Zero keeps the source default.
func WithGridRetryDelay(d time.Duration) GridOption {
	return func(cfg *gridConfig) error {
		if d < 0 {
			return errors.New("retry delay cannot be negative")
		}
		if d > 0 {
			cfg.share(WithRetryDelay(d))
		}
		return nil
	}
}

// WithGridRefreshInterval sets the polling cadence, between 1 second and
// 1 hour. Zero keeps the source default.
func WithGridRefreshInterval(d time.Duration) GridOption {
	return func(cfg *gridConfig) error {
		switch {
		case d < 0:
			return errors.New("refresh interval cannot be negative")
		case d == 0:
			return nil
		case d < time.Second:
			return errors.New("refresh interval must be at least 1 second")
		case d > time.Hour:
			return errors.New("refresh interval must not exceed 1 hour")
		}
		cfg.share(WithRefreshInterval(d))
		return nil
	}
}

// WithGridEnabled controls whether generated sources start enabled.
func WithGridEnabled(enabled bool) GridOption {
	return func(cfg *gridConfig) error {
		cfg.share(WithEnabled(enabled))
		return nil
	}
}
