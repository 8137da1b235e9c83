package slots

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/scheduling/internal/appointment"
	"github.com/clinicore/scheduling/internal/clock"
	"github.com/clinicore/scheduling/internal/observability/metrics"
	"github.com/clinicore/scheduling/internal/schedule"
	"github.com/clinicore/scheduling/internal/timerange"
)

// maxScanDays bounds the forward scan of NextAvailableSlot.
const maxScanDays = 90

var ErrBadDuration = errors.New("slot duration must be a positive number of minutes")

// ScheduleSource yields the availability inputs for one doctor.
// *schedule.Service satisfies it.
type ScheduleSource interface {
	GetWeeklySchedule(ctx context.Context, tenantID, doctorID uuid.UUID) ([]schedule.WeeklySlot, error)
	GetOverride(ctx context.Context, tenantID, doctorID uuid.UUID, date time.Time) (*schedule.Override, error)
}

// BookingSource yields the appointments that occupy slots.
// *appointment.Service and *appointment.PgRepository both satisfy it.
type BookingSource interface {
	ListActiveForDoctorDate(ctx context.Context, tenantID, doctorID uuid.UUID, date time.Time) ([]appointment.Appointment, error)
}

// DaySlot is one bookable window on a concrete date.
type DaySlot struct {
	Date time.Time       `json:"date"`
	Slot timerange.Range `json:"slot"`
}

// Generator merges weekly availability and date overrides into concrete free
// slots, with booked appointments subtracted.
type Generator struct {
	schedules ScheduleSource
	bookings  BookingSource
	metrics   *metrics.SchedulingMetrics
	clk       clock.Clock
	logger    zerolog.Logger
}

func NewGenerator(schedules ScheduleSource, bookings BookingSource, m *metrics.SchedulingMetrics, clk clock.Clock) *Generator {
	if schedules == nil || bookings == nil {
		panic("slots: schedules and bookings sources are required")
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Generator{
		schedules: schedules,
		bookings:  bookings,
		metrics:   m,
		clk:       clk,
		logger:    log.With().Str("component", "slots").Logger(),
	}
}

// rawWindows resolves the availability windows for one date. An override, when
// present, replaces the weekly schedule for that date entirely: a blocked day
// yields no windows, an available one yields exactly its window.
func (g *Generator) rawWindows(ctx context.Context, tenantID, doctorID uuid.UUID, date time.Time) ([]timerange.Range, error) {
	ov, err := g.schedules.GetOverride(ctx, tenantID, doctorID, date)
	switch {
	case err == nil:
		if !ov.IsAvailable {
			return nil, nil
		}
		return []timerange.Range{{Start: *ov.Start, End: *ov.End}}, nil
	case !errors.Is(err, schedule.ErrOverrideNotFound):
		return nil, err
	}

	weekly, err := g.schedules.GetWeeklySchedule(ctx, tenantID, doctorID)
	if err != nil {
		return nil, err
	}
	day := timerange.Weekday(date)
	var windows []timerange.Range
	for _, slot := range weekly {
		if slot.Active && slot.DayOfWeek == day {
			windows = append(windows, timerange.Range{Start: slot.Start, End: slot.End})
		}
	}
	return windows, nil
}

// FreeSlotsForDate returns the ordered free slots of the given duration (in
// minutes) for one doctor on one date.
func (g *Generator) FreeSlotsForDate(ctx context.Context, tenantID, doctorID uuid.UUID, date time.Time, duration int) ([]timerange.Range, error) {
	if duration <= 0 {
		return nil, ErrBadDuration
	}
	started := g.clk.Now()
	defer func() {
		g.metrics.ObserveSlotQuery("date", time.Since(started).Seconds())
	}()

	date = timerange.DateOf(date)
	windows, err := g.rawWindows(ctx, tenantID, doctorID, date)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, nil
	}

	seen := make(map[timerange.Range]struct{})
	var candidates []timerange.Range
	for _, w := range windows {
		for _, slot := range timerange.Slots(w.Start, w.End, duration, duration) {
			if _, dup := seen[slot]; dup {
				continue
			}
			seen[slot] = struct{}{}
			candidates = append(candidates, slot)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Start < candidates[j].Start })

	booked, err := g.bookings.ListActiveForDoctorDate(ctx, tenantID, doctorID, date)
	if err != nil {
		return nil, err
	}

	free := candidates[:0]
	for _, slot := range candidates {
		occupied := false
		for _, appt := range booked {
			if timerange.Overlaps(slot.Start, slot.End, appt.Start, appt.End) {
				occupied = true
				break
			}
		}
		if !occupied {
			free = append(free, slot)
		}
	}
	return free, nil
}

// NextAvailableSlot scans forward from fromDate, one calendar day at a time,
// and returns the first free slot of the given duration. Every day is
// considered: days the doctor does not work simply yield no slots. Returns
// nil when no slot exists within maxDays (clamped to 90).
func (g *Generator) NextAvailableSlot(ctx context.Context, tenantID, doctorID uuid.UUID, fromDate time.Time, duration, maxDays int) (*DaySlot, error) {
	if duration <= 0 {
		return nil, ErrBadDuration
	}
	if maxDays <= 0 || maxDays > maxScanDays {
		maxDays = maxScanDays
	}
	started := g.clk.Now()
	defer func() {
		g.metrics.ObserveSlotQuery("scan", time.Since(started).Seconds())
	}()

	date := timerange.DateOf(fromDate)
	for i := 0; i < maxDays; i++ {
		free, err := g.FreeSlotsForDate(ctx, tenantID, doctorID, date, duration)
		if err != nil {
			return nil, err
		}
		if len(free) > 0 {
			return &DaySlot{Date: date, Slot: free[0]}, nil
		}
		date = date.AddDate(0, 0, 1)
	}
	g.logger.Debug().
		Str("doctor_id", doctorID.String()).
		Int("scanned_days", maxDays).
		Msg("no available slot within scan horizon")
	return nil, nil
}
