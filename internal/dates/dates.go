// Package dates provides timezone-aware calendar-day utilities.
//
// All day-boundary logic in the application goes through this package. A
// "day" is always a calendar day in the reader's configured IANA timezone,
// represented as a canonical "YYYY-MM-DD" string. Truncating a UTC instant
// directly would shift activity near local midnight into the wrong day.
package dates

import (
	"fmt"
	"regexp"
	"time"
)

// DayFormat is the canonical layout for calendar-day strings.
const DayFormat = "2006-01-02"

// dayPattern rejects anything that is not a zero-padded YYYY-MM-DD shape
// before the semantic check runs. time.Parse alone would accept some
// unpadded forms via its own normalization.
var dayPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseDay parses a strict "YYYY-MM-DD" string into a year/month/day tuple,
// rejecting both malformed strings and impossible calendar dates
// (2024-13-45, non-leap Feb 29).
func ParseDay(s string) (time.Time, error) {
	if !dayPattern.MatchString(s) {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	t, err := time.Parse(DayFormat, s)
	if err != nil {
		// The shape already matched, so the components themselves must be
		// out of range (Feb 31, month 13).
		return time.Time{}, fmt.Errorf("invalid date %q: not a real calendar date", s)
	}
	return t, nil
}

// IsValidDay reports whether s is a strict, real calendar date.
func IsValidDay(s string) bool {
	_, err := ParseDay(s)
	return err == nil
}

// DayString returns the calendar day of instant t as seen in loc.
func DayString(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayFormat)
}

// Today returns the current calendar day in loc.
func Today(loc *time.Location) string {
	return DayString(time.Now(), loc)
}

// DayStart interprets a calendar-day string as local midnight in loc and
// returns the corresponding UTC instant. Used for storage-range queries.
func DayStart(day string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DayFormat, day, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", day)
	}
	if t.Format(DayFormat) != day {
		return time.Time{}, fmt.Errorf("invalid date %q: not a real calendar date", day)
	}
	return t.UTC(), nil
}

// DaysBetween returns the number of calendar days from day a to day b
// (positive when b is after a). Both must be valid day strings.
func DaysBetween(a, b string) (int, error) {
	ta, err := ParseDay(a)
	if err != nil {
		return 0, err
	}
	tb, err := ParseDay(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}

// AddDays returns the day string n calendar days after day.
func AddDays(day string, n int) (string, error) {
	t, err := ParseDay(day)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DayFormat), nil
}

// LoadLocation resolves an IANA timezone name, falling back to UTC for an
// empty name. Invalid names are an error rather than a silent fallback so a
// mistyped timezone never shifts streak boundaries unnoticed.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}
