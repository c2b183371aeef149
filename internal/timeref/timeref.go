// Package timeref centralizes reference-timezone arithmetic. Every calendar
// boundary in the service (daily stats, retention cutoffs, cron cadences) is
// computed against the quote source's home timezone, UTC+8, regardless of
// the host machine timezone.
package timeref

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Location is the fixed reference timezone. The source region does not
// observe DST, so a fixed offset is correct year-round.
var Location = time.FixedZone("UTC+8", 8*60*60)

// Now returns the current instant expressed in the reference timezone.
func Now() time.Time {
	return time.Now().In(Location)
}

// In converts t to the reference timezone.
func In(t time.Time) time.Time {
	return t.In(Location)
}

// StartOfDay returns midnight of t's calendar day in the reference timezone.
func StartOfDay(t time.Time) time.Time {
	t = t.In(Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Location)
}

// DaysAgo returns the instant exactly n*24h before now. Retention cutoffs
// are measured from an absolute now, not local midnight, so a fixed duration
// is the right arithmetic here.
func DaysAgo(now time.Time, n int) time.Time {
	return now.Add(-time.Duration(n) * 24 * time.Hour)
}

// DateString formats t's calendar date in the reference timezone.
func DateString(t time.Time) string {
	return t.In(Location).Format("2006-01-02")
}

// HourKey truncates t to the start of its reference-timezone calendar hour.
func HourKey(t time.Time) time.Time {
	t = t.In(Location)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, Location)
}

// CombineClock builds an absolute instant from day's calendar date and a
// source-reported "HH:MM:SS" clock reading, both interpreted in the
// reference timezone.
func CombineClock(day time.Time, clock string) (time.Time, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("malformed clock string %q", clock)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed hour in %q", clock)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed minute in %q", clock)
	}
	s, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed second in %q", clock)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || s < 0 || s > 59 {
		return time.Time{}, fmt.Errorf("clock %q out of range", clock)
	}

	day = day.In(Location)
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, s, 0, Location), nil
}
