package timerange

import (
	"errors"
	"fmt"
	"regexp"
)

// MinutesPerDay bounds every TimeOfDay value.
const MinutesPerDay = 24 * 60

var ErrBadTimeFormat = errors.New("time must be HH:MM in 24-hour format")

var timeOfDayPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)

// TimeOfDay is a wall-clock time expressed as whole minutes since midnight.
// Valid values are in [0, MinutesPerDay).
type TimeOfDay int

// ParseTimeOfDay converts an "HH:MM" literal into minutes since midnight.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := timeOfDayPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("parse %q: %w", s, ErrBadTimeFormat)
	}
	var hours, minutes int
	fmt.Sscanf(m[1], "%d", &hours)
	fmt.Sscanf(m[2], "%d", &minutes)
	return TimeOfDay(hours*60 + minutes), nil
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < MinutesPerDay
}

// String formats the time as zero-padded "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalJSON encodes the time as the wire format "HH:MM".
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("time of day %d out of range", int(t))
	}
	return []byte(`"` + t.String() + `"`), nil
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return ErrBadTimeFormat
	}
	parsed, err := ParseTimeOfDay(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Range is a half-open window [Start, End) within a single day.
type Range struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Overlaps reports whether two half-open windows intersect.
// Windows that merely touch at an endpoint do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart < bEnd && bStart < aEnd
}

func (r Range) Overlaps(other Range) bool {
	return Overlaps(r.Start, r.End, other.Start, other.End)
}

// Slots cuts [start, end) into windows of exactly duration minutes, advancing
// by step. A window that would extend past end is discarded rather than
// shortened. A step of zero means step = duration.
func Slots(start, end TimeOfDay, duration, step int) []Range {
	if duration <= 0 || start >= end {
		return nil
	}
	if step <= 0 {
		step = duration
	}
	var out []Range
	for cur := start; cur+TimeOfDay(duration) <= end; cur += TimeOfDay(step) {
		out = append(out, Range{Start: cur, End: cur + TimeOfDay(duration)})
	}
	return out
}
