package timerange

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

var ErrBadDateFormat = errors.New("date must be YYYY-MM-DD")

// ParseDate converts a "YYYY-MM-DD" literal into a UTC-midnight time.Time.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", s, ErrBadDateFormat)
	}
	return d, nil
}

// DateOf truncates a timestamp to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Weekday returns the day-of-week index for a date, 0=Sunday through
// 6=Saturday. This matches time.Weekday directly, so the conversion is the
// identity on both sides.
func Weekday(date time.Time) int {
	return int(date.Weekday())
}

// At combines a calendar date with a time of day into a single instant (UTC).
func At(date time.Time, t TimeOfDay) time.Time {
	y, m, d := date.UTC().Date()
	return time.Date(y, m, d, int(t)/60, int(t)%60, 0, 0, time.UTC)
}
