package app

import (
	"fmt"
	"time"
)

// DayLayout is the key format for days in a counter record
const DayLayout = "2006-01-02"

// Date returns the given calendar day.
// Use noon to avoid timezone issues when formatting to YYYY-MM-DD
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

// Today returns the current local calendar day
func Today() time.Time {
	now := time.Now()
	return Date(now.Year(), now.Month(), now.Day())
}

// DayKey formats a day as YYYY-MM-DD
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// ParseDay parses a YYYY-MM-DD string into a calendar day
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDay, s)
	}
	return Date(t.Year(), t.Month(), t.Day()), nil
}

// DaysIn returns the number of days in the given month (Gregorian rules)
func DaysIn(year int, month time.Month) int {
	// Day 0 of the next month normalizes to the last day of this one
	return time.Date(year, month+1, 0, 12, 0, 0, 0, time.UTC).Day()
}

// ShiftMonth moves (year, month) by delta months
func ShiftMonth(year int, month time.Month, delta int) (int, time.Month) {
	t := time.Date(year, month+time.Month(delta), 1, 12, 0, 0, 0, time.UTC)
	return t.Year(), t.Month()
}

// ValidMonth reports whether month is within 1..12
func ValidMonth(month time.Month) bool {
	return month >= time.January && month <= time.December
}

// LevelFor buckets a count into an intensity level
func LevelFor(count int) Level {
	switch {
	case count <= 0:
		return LevelNone
	case count < 3:
		return LevelLow
	case count < 6:
		return LevelMedium
	default:
		return LevelHigh
	}
}
