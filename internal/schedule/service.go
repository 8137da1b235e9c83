package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/scheduling/internal/clock"
	"github.com/clinicore/scheduling/internal/events"
	"github.com/clinicore/scheduling/internal/timerange"
)

const (
	// Weekly slot duration bounds, in minutes.
	minWeeklySlotMinutes = 30
	maxWeeklySlotMinutes = 12 * 60

	// ListOverrides refuses ranges wider than this.
	maxOverrideRangeDays = 90
)

// Service owns weekly schedules and date overrides for doctors.
type Service struct {
	repo   Repository
	cache  *Cache
	sink   events.Sink
	clk    clock.Clock
	logger zerolog.Logger
}

func NewService(repo Repository, cache *Cache, sink events.Sink, clk clock.Clock) *Service {
	if repo == nil {
		panic("schedule: repository required")
	}
	if sink == nil {
		sink = events.Nop()
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Service{
		repo:   repo,
		cache:  cache,
		sink:   sink,
		clk:    clk,
		logger: log.With().Str("component", "schedule").Logger(),
	}
}

// SetWeeklySchedule validates the whole batch and atomically replaces the
// doctor's week. On validation failure every violation is reported and no
// write occurs.
func (s *Service) SetWeeklySchedule(ctx context.Context, tenantID, doctorID uuid.UUID, slots []WeeklySlot, actorID uuid.UUID) ([]WeeklySlot, error) {
	if err := validateWeeklyBatch(slots); err != nil {
		return nil, err
	}

	stored, err := s.repo.ReplaceWeekly(ctx, tenantID, doctorID, slots)
	if err != nil {
		return nil, fmt.Errorf("replace weekly schedule: %w", err)
	}

	s.cache.InvalidateWeekly(ctx, tenantID, doctorID)
	s.sink.Publish(ctx, events.Event{
		Type:          events.TypeScheduleReplaced,
		TenantID:      tenantID,
		AggregateID:   doctorID,
		AggregateType: "doctor_schedule",
		ActorID:       actorID,
		Payload:       map[string]any{"slot_count": len(stored)},
	})
	s.logger.Info().
		Str("doctor_id", doctorID.String()).
		Int("slots", len(stored)).
		Msg("weekly schedule replaced")

	return stored, nil
}

// GetWeeklySchedule returns the doctor's active slots ordered by
// (day_of_week, start), served from the projection cache when warm.
func (s *Service) GetWeeklySchedule(ctx context.Context, tenantID, doctorID uuid.UUID) ([]WeeklySlot, error) {
	if cached, ok := s.cache.GetWeekly(ctx, tenantID, doctorID); ok {
		return cached, nil
	}
	slots, err := s.repo.GetWeekly(ctx, tenantID, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load weekly schedule: %w", err)
	}
	s.cache.SetWeekly(ctx, tenantID, doctorID, slots)
	return slots, nil
}

func validateWeeklyBatch(slots []WeeklySlot) error {
	var violations []string

	perDay := make(map[int][]WeeklySlot)
	for i, slot := range slots {
		if slot.DayOfWeek < 0 || slot.DayOfWeek > 6 {
			violations = append(violations, fmt.Sprintf("slot %d: day_of_week %d outside 0..6", i, slot.DayOfWeek))
		}
		if !slot.Start.Valid() || !slot.End.Valid() {
			violations = append(violations, fmt.Sprintf("slot %d: time of day out of range", i))
			continue
		}
		if slot.Start >= slot.End {
			violations = append(violations, fmt.Sprintf("slot %d: start %s must be before end %s", i, slot.Start, slot.End))
			continue
		}
		duration := int(slot.End - slot.Start)
		if duration < minWeeklySlotMinutes {
			violations = append(violations, fmt.Sprintf("slot %d: duration %dm below minimum %dm", i, duration, minWeeklySlotMinutes))
		}
		if duration > maxWeeklySlotMinutes {
			violations = append(violations, fmt.Sprintf("slot %d: duration %dm above maximum %dm", i, duration, maxWeeklySlotMinutes))
		}
		perDay[slot.DayOfWeek] = append(perDay[slot.DayOfWeek], slot)
	}

	// Same-day slots must not overlap: sort by start, compare neighbours.
	for day, daySlots := range perDay {
		sort.Slice(daySlots, func(i, j int) bool { return daySlots[i].Start < daySlots[j].Start })
		for i := 1; i < len(daySlots); i++ {
			prev, cur := daySlots[i-1], daySlots[i]
			if cur.Start < prev.End {
				violations = append(violations, fmt.Sprintf(
					"day %d: slots %s-%s and %s-%s overlap",
					day, prev.Start, prev.End, cur.Start, cur.End))
			}
		}
	}

	if len(violations) > 0 {
		return &ScheduleValidationError{Violations: violations}
	}
	return nil
}

// UpsertOverride creates or replaces the single override allowed per
// (doctor, date).
func (s *Service) UpsertOverride(ctx context.Context, ov Override, actorID uuid.UUID) (*Override, error) {
	ov.Date = timerange.DateOf(ov.Date)

	today := timerange.DateOf(s.clk.Now())
	if ov.Date.Before(today) {
		return nil, validationErrorf("override date %s is in the past", ov.Date.Format(timerange.DateLayout))
	}
	if ov.IsAvailable {
		if ov.Start == nil || ov.End == nil {
			return nil, validationErrorf("an available override requires both start and end times")
		}
		if !ov.Start.Valid() || !ov.End.Valid() {
			return nil, validationErrorf("override times out of range")
		}
		if *ov.Start >= *ov.End {
			return nil, validationErrorf("override start %s must be before end %s", ov.Start, ov.End)
		}
	} else {
		// Blocked day: stored without a window.
		ov.Start = nil
		ov.End = nil
	}

	stored, err := s.repo.UpsertOverride(ctx, ov)
	if err != nil {
		return nil, fmt.Errorf("upsert override: %w", err)
	}

	s.cache.InvalidateWeekly(ctx, ov.TenantID, ov.DoctorID)
	s.sink.Publish(ctx, events.Event{
		Type:          events.TypeOverrideUpserted,
		TenantID:      ov.TenantID,
		AggregateID:   stored.ID,
		AggregateType: "availability_override",
		ActorID:       actorID,
		Payload: map[string]any{
			"doctor_id":    ov.DoctorID,
			"date":         stored.Date.Format(timerange.DateLayout),
			"is_available": stored.IsAvailable,
		},
	})
	return stored, nil
}

func (s *Service) GetOverride(ctx context.Context, tenantID, doctorID uuid.UUID, date time.Time) (*Override, error) {
	return s.repo.GetOverride(ctx, tenantID, doctorID, timerange.DateOf(date))
}

func (s *Service) ListOverrides(ctx context.Context, tenantID, doctorID uuid.UUID, from, to time.Time) ([]Override, error) {
	from = timerange.DateOf(from)
	to = timerange.DateOf(to)
	if to.Before(from) {
		return nil, validationErrorf("range end %s before start %s", to.Format(timerange.DateLayout), from.Format(timerange.DateLayout))
	}
	if to.Sub(from) > maxOverrideRangeDays*24*time.Hour {
		return nil, validationErrorf("override range exceeds %d days", maxOverrideRangeDays)
	}
	return s.repo.ListOverrides(ctx, tenantID, doctorID, from, to)
}

func (s *Service) DeleteOverride(ctx context.Context, tenantID, doctorID, id uuid.UUID, actorID uuid.UUID) error {
	if err := s.repo.DeleteOverride(ctx, tenantID, id); err != nil {
		return err
	}
	s.cache.InvalidateWeekly(ctx, tenantID, doctorID)
	s.sink.Publish(ctx, events.Event{
		Type:          events.TypeOverrideDeleted,
		TenantID:      tenantID,
		AggregateID:   id,
		AggregateType: "availability_override",
		ActorID:       actorID,
		Payload:       map[string]any{"doctor_id": doctorID},
	})
	return nil
}
