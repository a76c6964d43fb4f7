package amount

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Compact suffix boundaries are fixed; values at or above each boundary
// are rounded (not truncated) to two displayed decimals.
var compactSteps = []struct {
	limit  float64
	suffix string
}{
	{1e12, "T"},
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "K"},
}

// FormatUSD renders a quote-unit value as a currency string with
// thousands grouping, e.g. 1234.5 -> "$1,234.50".
func FormatUSD(v float64) string {
	if v < 0 {
		v = 0
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	i := strings.IndexByte(s, '.')
	return "$" + groupThousands(s[:i]) + s[i:]
}

// FormatPercent renders a ratio already expressed as a percentage,
// e.g. 70.0 -> "70.00%".
func FormatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}

// FormatCompact renders a large number with a K/M/B/T suffix, rounding at
// the displayed precision: 1_234_567 -> "1.23M", 1_236 -> "1.24K".
func FormatCompact(v float64) string {
	if v < 0 {
		v = 0
	}
	for _, step := range compactSteps {
		if v >= step.limit {
			return strconv.FormatFloat(v/step.limit, 'f', 2, 64) + step.suffix
		}
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatRelativeTime renders the age of t relative to now.
func FormatRelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}

// TruncateAddress shortens a bech32 address for display:
// "stone1qqqsyqcyq5rqwzqf3953cgk" -> "stone1qqqs...3cgk".
func TruncateAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:10] + "..." + addr[len(addr)-4:]
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
