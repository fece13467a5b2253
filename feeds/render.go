package feeds

import (
	"encoding/json"
	"fmt"
	"time"
)

// Source kinds understood by [Render].
const (
	KindPlatformStats = "platform_stats"
	KindTeam          = "team"
	KindTestimonials  = "testimonials"
)

// Cadence is the polling cadence a feed kind is tuned for.
type Cadence struct {
	RefreshInterval time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
	FreshFor        time.Duration
}

var cadences = map[string]Cadence{
	KindPlatformStats: {30 * time.Second, 3, 2 * time.Second, StatsFreshFor},
	KindTeam:          {120 * time.Second, 2, 3 * time.Second, TeamFreshFor},
	KindTestimonials:  {60 * time.Second, 2, 3 * time.Second, TestimonialsFreshFor},
}

// Defaults returns the cadence for kind, and false for unknown kinds.
func Defaults(kind string) (Cadence, bool) {
	c, ok := cadences[kind]
	return c, ok
}

// Known reports whether kind has a renderer.
func Known(kind string) bool {
	_, ok := cadences[kind]
	return ok
}

// Render decodes raw as the payload of kind and returns its display model.
// Unknown or empty kinds render to nil without error.
func Render(kind string, raw json.RawMessage, now time.Time) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	switch kind {
	case KindPlatformStats:
		var s PlatformStats
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return s.View(now), nil
	case KindTeam:
		var d TeamData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return d.View(now), nil
	case KindTestimonials:
		var d TestimonialsData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return d.View(now), nil
	}
	return nil, nil
}
