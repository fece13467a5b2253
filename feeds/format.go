package feeds

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatNumber abbreviates large counts: 1.2M, 45K, 999.
func FormatNumber(n float64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", n/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.0fK", n/1_000)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// FormatCurrency abbreviates a dollar amount: $1.2M, $45K, $1,250.50.
// Negative amounts are not abbreviated and carry the sign before the
// dollar: -$2,500.
func FormatCurrency(n float64) string {
	if n < 0 {
		return "-$" + groupThousands(-n)
	}
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("$%.1fM", n/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("$%.0fK", n/1_000)
	}
	return "$" + groupThousands(n)
}

// FormatPercentage renders a 0..1 ratio as a whole percentage.
func FormatPercentage(ratio float64) string {
	return fmt.Sprintf("%.0f%%", ratio*100)
}

// groupThousands renders n with comma separators and, when the amount
// has a non-zero cents part after rounding, two decimals.
func groupThousands(n float64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	cents := int64(math.Round(n * 100))
	whole, frac := cents/100, cents%100

	digits := strconv.FormatInt(whole, 10)
	var b strings.Builder
	b.WriteString(sign)
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != 0 {
		fmt.Fprintf(&b, ".%02d", frac)
	}
	return b.String()
}

// TimeAgo renders the distance between t and now in the largest whole unit:
// "Just now", "5m ago", "3h ago", "2d ago".
func TimeAgo(t, now time.Time) string {
	minutes := int(math.Floor(now.Sub(t).Minutes()))
	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return fmt.Sprintf("%dm ago", minutes)
	case minutes < 1440:
		return fmt.Sprintf("%dh ago", minutes/60)
	}
	return fmt.Sprintf("%dd ago", minutes/1440)
}

// DaysAgo renders a calendar-ish distance: "Today", "Yesterday", "3 days ago",
// "2 weeks ago", "4 months ago", "1 years ago".
func DaysAgo(t, now time.Time) string {
	days := int(math.Floor(now.Sub(t).Hours() / 24))
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		return fmt.Sprintf("%d weeks ago", days/7)
	case days < 365:
		return fmt.Sprintf("%d months ago", days/30)
	}
	return fmt.Sprintf("%d years ago", days/365)
}

// IsFresh reports whether lastUpdated lies within window of now. A zero
// lastUpdated is never fresh.
func IsFresh(lastUpdated, now time.Time, window time.Duration) bool {
	if lastUpdated.IsZero() {
		return false
	}
	return now.Sub(lastUpdated) < window
}

// parseTime accepts RFC 3339 timestamps and plain dates.
func parseTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
