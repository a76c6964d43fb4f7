package amount_test

import (
	"testing"
	"time"

	"github.com/stonefinance/stone-sub002/internal/amount"
)

func TestFormatUSD(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{1234.5, "$1,234.50"},
		{1234567.891, "$1,234,567.89"},
		{999.999, "$1,000.00"},
		{-5, "$0.00"},
	}
	for _, tc := range cases {
		if got := amount.FormatUSD(tc.in); got != tc.want {
			t.Errorf("FormatUSD(%v): got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := amount.FormatPercent(70); got != "70.00%" {
		t.Errorf("got %q, want %q", got, "70.00%")
	}
}

func TestFormatCompact(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{999, "999.00"},
		{1000, "1.00K"},
		{1236, "1.24K"}, // rounds, not truncates
		{1234567, "1.23M"},
		{2500000000, "2.50B"},
		{7200000000000, "7.20T"},
	}
	for _, tc := range cases {
		if got := amount.FormatCompact(tc.in); got != tc.want {
			t.Errorf("FormatCompact(%v): got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		age  time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{48 * time.Hour, "2d ago"},
	}
	for _, tc := range cases {
		if got := amount.FormatRelativeTime(now.Add(-tc.age), now); got != tc.want {
			t.Errorf("age %v: got %q, want %q", tc.age, got, tc.want)
		}
	}

	old := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if got := amount.FormatRelativeTime(old, now); got != "Jan 2, 2024" {
		t.Errorf("got %q, want %q", got, "Jan 2, 2024")
	}
}

func TestTruncateAddress(t *testing.T) {
	long := "stone1qqqsyqcyq5rqwzqf3953cgk"
	if got := amount.TruncateAddress(long); got != "stone1qqqs...3cgk" {
		t.Errorf("got %q, want %q", got, "stone1qqqs...3cgk")
	}

	short := "stone1qqqsyqc" // 13 chars, under the cutoff
	if got := amount.TruncateAddress(short); got != short {
		t.Errorf("short address should pass through, got %q", got)
	}
}
