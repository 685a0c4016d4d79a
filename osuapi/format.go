package osuapi

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Thousands renders n with comma thousands separators (1234567 -> "1,234,567").
func Thousands(n int64) string {
	return printer.Sprintf("%d", n)
}

// ThousandsFloat renders f with comma thousands separators and the given decimals.
func ThousandsFloat(f float64, decimals int) string {
	return printer.Sprintf("%.*f", decimals, f)
}

// upstream dates come in two flavours depending on the endpoint
var timeLayouts = []string{
	"2006-01-02T15:04:05+00:00",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseTime parses an osu! API timestamp as UTC. It accepts ISO-8601 with a trailing
// "Z" and the "+00:00" offset form used for join dates.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	trimmed := strings.TrimSuffix(s, "Z")
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
		if t, err := time.ParseInLocation(layout, trimmed, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised osu! timestamp %q", s)
}

// optionalTime parses s when non-empty; unparseable or empty values yield nil.
func optionalTime(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := ParseTime(*s)
	if err != nil {
		return nil
	}
	return &t
}

// Ago renders a coarse "N units ago" relative to now.
func Ago(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	var n int
	var unit string
	switch {
	case d >= 365*24*time.Hour:
		n, unit = int(d/(365*24*time.Hour)), "year"
	case d >= 30*24*time.Hour:
		n, unit = int(d/(30*24*time.Hour)), "month"
	case d >= 24*time.Hour:
		n, unit = int(d/(24*time.Hour)), "day"
	case d >= time.Hour:
		n, unit = int(d/time.Hour), "hour"
	case d >= time.Minute:
		n, unit = int(d/time.Minute), "minute"
	default:
		return "just now"
	}
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}
