package license

import (
	"fmt"
	"strings"
	"time"
)

// lifetimeYears is how far a lifetime license's expiry is pushed out.
const lifetimeYears = 100

// ParseExpiry reads a stored expiry date. Full RFC 3339 timestamps written by
// older clients are accepted and reduced to their calendar date.
func ParseExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty expiry date")
	}

	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing expiry date %q: %w", s, err)
	}

	return truncateDay(t), nil
}

// RenewedExpiry extends a license from the later of its current expiry and
// today. Yearly renewals add one calendar year; every other duration adds one
// calendar month. A nil current expiry renews from today.
func RenewedExpiry(current *time.Time, now time.Time, d Duration) time.Time {
	today := truncateDay(now)

	base := today
	if current != nil && truncateDay(*current).After(today) {
		base = truncateDay(*current)
	}

	if d == DurationYearly {
		return base.AddDate(1, 0, 0)
	}

	return base.AddDate(0, 1, 0)
}

// InitialExpiry is the expiry of a freshly issued license. Unknown durations
// are treated as lifetime.
func InitialExpiry(now time.Time, d Duration) time.Time {
	today := truncateDay(now)

	switch d {
	case DurationMonthly:
		return today.AddDate(0, 1, 0)
	case DurationYearly:
		return today.AddDate(1, 0, 0)
	default:
		return today.AddDate(lifetimeYears, 0, 0)
	}
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
