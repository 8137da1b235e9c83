package timerange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "08:30", want: 510},
		{in: "7:05", want: 425},
		{in: "23:59", want: 1439},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "12", wantErr: true},
		{in: "12:5", wantErr: true},
		{in: "", wantErr: true},
		{in: "ab:cd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrBadTimeFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeOfDayRoundTrip(t *testing.T) {
	for _, s := range []string{"00:00", "08:05", "17:45", "23:59"} {
		parsed, err := ParseTimeOfDay(s)
		require.NoError(t, err)
		assert.Equal(t, s, parsed.String())
	}
}

func TestOverlapsSymmetry(t *testing.T) {
	windows := []Range{
		{Start: 540, End: 600},  // 09:00-10:00
		{Start: 600, End: 660},  // 10:00-11:00
		{Start: 599, End: 630},  // 09:59-10:30
		{Start: 0, End: 1440},   // whole day
		{Start: 570, End: 571},  // one minute
		{Start: 480, End: 1080}, // 08:00-18:00
	}
	for _, a := range windows {
		for _, b := range windows {
			assert.Equal(t, a.Overlaps(b), b.Overlaps(a),
				"overlap must be symmetric for %v and %v", a, b)
		}
	}
}

func TestOverlapsHalfOpenBoundary(t *testing.T) {
	nine, _ := ParseTimeOfDay("09:00")
	ten, _ := ParseTimeOfDay("10:00")
	eleven, _ := ParseTimeOfDay("11:00")
	nineFiftyNine, _ := ParseTimeOfDay("09:59")
	tenThirty, _ := ParseTimeOfDay("10:30")

	assert.False(t, Overlaps(nine, ten, ten, eleven), "touching windows must not overlap")
	assert.True(t, Overlaps(nine, ten, nineFiftyNine, tenThirty))
	assert.False(t, Overlaps(nine, ten, nine, nine), "empty window never overlaps")
}

func TestSlots(t *testing.T) {
	nine, _ := ParseTimeOfDay("09:00")
	ten, _ := ParseTimeOfDay("10:00")

	t.Run("exact fit", func(t *testing.T) {
		got := Slots(nine, ten, 30, 0)
		require.Len(t, got, 2)
		assert.Equal(t, Range{Start: 540, End: 570}, got[0])
		assert.Equal(t, Range{Start: 570, End: 600}, got[1])
	})

	t.Run("remainder discarded", func(t *testing.T) {
		got := Slots(nine, ten, 40, 0)
		require.Len(t, got, 1)
		assert.Equal(t, Range{Start: 540, End: 580}, got[0])
	})

	t.Run("step smaller than duration", func(t *testing.T) {
		got := Slots(nine, ten, 30, 15)
		require.Len(t, got, 3)
		assert.Equal(t, Range{Start: 555, End: 585}, got[1])
	})

	t.Run("duration longer than window", func(t *testing.T) {
		assert.Empty(t, Slots(nine, ten, 90, 0))
	})

	t.Run("degenerate inputs", func(t *testing.T) {
		assert.Empty(t, Slots(ten, nine, 30, 0))
		assert.Empty(t, Slots(nine, ten, 0, 0))
	})
}

func TestWeekdayMatchesGoConvention(t *testing.T) {
	// 0=Sunday..6=Saturday is the same enumeration time.Weekday uses, so the
	// mapping must be the identity for a full week.
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC) // a Sunday
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		assert.Equal(t, i, Weekday(day))
		assert.Equal(t, int(day.Weekday()), Weekday(day))
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-09-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("15/09/2026")
	assert.ErrorIs(t, err, ErrBadDateFormat)
}

func TestAt(t *testing.T) {
	d, _ := ParseDate("2026-09-15")
	tod, _ := ParseTimeOfDay("14:30")
	assert.Equal(t, time.Date(2026, 9, 15, 14, 30, 0, 0, time.UTC), At(d, tod))
}
