package pulsefeed

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
	"text/template"
)

// NewSourceGrid expands a URL template over every combination of dimension
// values and returns one [Source] per combination.
//
// Values are query-escaped before they reach the template, and a template
// key with no matching dimension is an error. Sources are named
// "Base (v1/v2)" with values ordered by dimension key. Each source carries
// its dimension values as labels; [WithGridLabels] overrides them.
//
//	sources, err := NewSourceGrid("Testimonials",
//	    WithURLTemplate("https://example.com/api/testimonials?locale={{.locale}}"),
//	    WithDimensions(map[string][]string{"locale": {"en", "es"}}),
//	    WithGridKind("testimonials"),
//	)
func NewSourceGrid(baseName string, opts ...GridOption) ([]Source, error) {
	if strings.TrimSpace(baseName) == "" {
		return nil, errors.New("base name cannot be empty")
	}

	var cfg gridConfig
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.urlTemplate == "" {
		return nil, errors.New("URL template required")
	}
	if len(cfg.dimensions) == 0 {
		return nil, errors.New("at least one dimension required")
	}

	tmpl, err := template.New("url").Option("missingkey=error").Parse(cfg.urlTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid URL template: %w", err)
	}

	combos := cartesianProduct(cfg.dimensions)
	sources := make([]Source, 0, len(combos))
	for _, combo := range combos {
		escaped := make(map[string]string, len(combo))
		for k, v := range combo {
			escaped[k] = url.QueryEscape(v)
		}
		var u strings.Builder
		if err := tmpl.Execute(&u, escaped); err != nil {
			return nil, fmt.Errorf("template execution failed: %w", err)
		}

		name := formatSourceName(baseName, combo)
		// dimension labels go first so shared label options overwrite them
		srcOpts := append([]SourceOption{WithLabels(pairs(combo)...)}, cfg.shared...)
		src, err := NewSource(name, u.String(), srcOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create source '%s': %w", name, err)
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return nil, nil
	}
	return sources, nil
}

// cartesianProduct returns every combination of dims, varying the last key
// (in sorted order) fastest. It returns nil when dims is empty or any
// dimension has no values.
func cartesianProduct(dims map[string][]string) []map[string]string {
	if len(dims) == 0 {
		return nil
	}
	out := []map[string]string{{}}
	for _, key := range slices.Sorted(maps.Keys(dims)) {
		vals := dims[key]
		if len(vals) == 0 {
			return nil
		}
		next := make([]map[string]string, 0, len(out)*len(vals))
		for _, partial := range out {
			for _, v := range vals {
				combo := maps.Clone(partial)
				combo[key] = v
				next = append(next, combo)
			}
		}
		out = next
	}
	return out
}

func formatSourceName(baseName string, combo map[string]string) string {
	vals := make([]string, 0, len(combo))
	for _, k := range slices.Sorted(maps.Keys(combo)) {
		vals = append(vals, combo[k])
	}
	return baseName + " (" + strings.Join(vals, "/") + ")"
}

// pairs flattens m into sorted key-value arguments.
func pairs(m map[string]string) []string {
	kv := make([]string, 0, 2*len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		kv = append(kv, k, m[k])
	}
	return kv
}
