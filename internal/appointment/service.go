package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/scheduling/internal/clock"
	"github.com/clinicore/scheduling/internal/events"
	"github.com/clinicore/scheduling/internal/observability/metrics"
	redisclient "github.com/clinicore/scheduling/internal/redis"
	"github.com/clinicore/scheduling/internal/timerange"
)

// BookingRequest is a proposed appointment, not yet validated.
type BookingRequest struct {
	TenantID       uuid.UUID
	DoctorID       uuid.UUID
	PatientID      uuid.UUID
	Date           time.Time
	Start          timerange.TimeOfDay
	End            timerange.TimeOfDay
	ReasonForVisit *string
	Notes          *string
	ActorID        uuid.UUID
}

// ServiceDeps collects the collaborators of the appointment service. Repo,
// Policy, and Detector are required; the rest default to no-ops or the system
// clock.
type ServiceDeps struct {
	Repo        Repository
	Policy      *Policy
	Detector    *ConflictDetector
	Locker      redisclient.BookingLocker
	Sink        events.Sink
	Clock       clock.Clock
	Metrics     *metrics.SchedulingMetrics
	NoShowGrace time.Duration
}

// Service coordinates booking, lifecycle transitions, and the no-show sweep.
type Service struct {
	repo        Repository
	policy      *Policy
	detector    *ConflictDetector
	locker      redisclient.BookingLocker
	sink        events.Sink
	clk         clock.Clock
	metrics     *metrics.SchedulingMetrics
	noShowGrace time.Duration
	logger      zerolog.Logger
}

func NewService(d ServiceDeps) *Service {
	if d.Repo == nil {
		panic("appointment: repository required")
	}
	if d.Policy == nil {
		panic("appointment: policy required")
	}
	if d.Detector == nil {
		panic("appointment: conflict detector required")
	}
	if d.Locker == nil {
		d.Locker = redisclient.NopLocker{}
	}
	if d.Sink == nil {
		d.Sink = events.Nop()
	}
	if d.Clock == nil {
		d.Clock = clock.System()
	}
	if d.NoShowGrace <= 0 {
		d.NoShowGrace = 30 * time.Minute
	}
	return &Service{
		repo:        d.Repo,
		policy:      d.Policy,
		detector:    d.Detector,
		locker:      d.Locker,
		sink:        d.Sink,
		clk:         d.Clock,
		metrics:     d.Metrics,
		noShowGrace: d.NoShowGrace,
		logger:      log.With().Str("component", "appointment").Logger(),
	}
}

// Book validates the request, then creates the appointment under the
// doctor-day lock with a conflict re-check inside the insert transaction.
// The pre-check outside the lock rejects the common case cheaply; the
// transactional re-check is what makes double-booking impossible.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if err := s.policy.Validate(req.Date, req.Start, req.End); err != nil {
		s.metrics.ObserveBooking("policy_rejected")
		return nil, err
	}

	q := OverlapQuery{
		TenantID:  req.TenantID,
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		Date:      req.Date,
		Start:     req.Start,
		End:       req.End,
	}
	if err := s.detector.Check(ctx, q); err != nil {
		s.recordConflict(err)
		return nil, err
	}

	var created *Appointment
	err := s.locker.WithBookingLock(ctx, req.DoctorID, req.Date, func(lockCtx context.Context) error {
		appt, conflicts, err := s.repo.CreateIfNoConflict(lockCtx, Appointment{
			TenantID:       req.TenantID,
			DoctorID:       req.DoctorID,
			PatientID:      req.PatientID,
			Date:           timerange.DateOf(req.Date),
			Start:          req.Start,
			End:            req.End,
			ReasonForVisit: req.ReasonForVisit,
			Notes:          req.Notes,
		})
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		if len(conflicts) > 0 {
			return Classify(q, conflicts)
		}
		created = appt
		return nil
	})
	if err != nil {
		s.recordConflict(err)
		return nil, err
	}

	s.metrics.ObserveBooking("booked")
	s.publish(ctx, events.TypeAppointmentCreated, created, req.ActorID, map[string]any{
		"doctor_id":  created.DoctorID,
		"patient_id": created.PatientID,
		"date":       created.Date.Format(timerange.DateLayout),
		"start":      created.Start.String(),
		"end":        created.End.String(),
	})
	s.logger.Info().
		Str("appointment_id", created.ID.String()).
		Str("doctor_id", created.DoctorID.String()).
		Str("date", created.Date.Format(timerange.DateLayout)).
		Msg("appointment booked")
	return created, nil
}

// Reschedule moves a scheduled or confirmed appointment to a new window with
// the same policy and conflict discipline as Book. The appointment being
// moved is excluded from its own conflict check.
func (s *Service) Reschedule(ctx context.Context, tenantID, id uuid.UUID, date time.Time, start, end timerange.TimeOfDay, actorID uuid.UUID) (*Appointment, error) {
	current, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.Rescheduleable() {
		return nil, ErrInvalidTransition
	}
	if err := s.policy.Validate(date, start, end); err != nil {
		return nil, err
	}

	q := OverlapQuery{
		TenantID:  tenantID,
		DoctorID:  current.DoctorID,
		PatientID: current.PatientID,
		Date:      date,
		Start:     start,
		End:       end,
		ExcludeID: &id,
	}
	if err := s.detector.Check(ctx, q); err != nil {
		s.recordConflict(err)
		return nil, err
	}

	var updated *Appointment
	err = s.locker.WithBookingLock(ctx, current.DoctorID, date, func(lockCtx context.Context) error {
		appt, conflicts, err := s.repo.RescheduleIfNoConflict(lockCtx, tenantID, id, date, start, end)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return Classify(q, conflicts)
		}
		updated = appt
		return nil
	})
	if err != nil {
		s.recordConflict(err)
		return nil, err
	}

	s.publish(ctx, events.TypeAppointmentRescheduled, updated, actorID, map[string]any{
		"date":  updated.Date.Format(timerange.DateLayout),
		"start": updated.Start.String(),
		"end":   updated.End.String(),
	})
	return updated, nil
}

// Confirm moves a scheduled appointment to confirmed.
func (s *Service) Confirm(ctx context.Context, tenantID, id uuid.UUID, actorID uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, tenantID, id, StatusConfirmed, actorID, events.TypeAppointmentConfirmed, func(patch *StatusPatch) {
		now := s.clk.Now()
		patch.ConfirmedAt = &now
	})
}

// StartVisit marks the appointment in progress.
func (s *Service) StartVisit(ctx context.Context, tenantID, id uuid.UUID, actorID uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, tenantID, id, StatusInProgress, actorID, events.TypeAppointmentStarted, nil)
}

// Complete finishes an in-progress visit; the appointment becomes immutable.
func (s *Service) Complete(ctx context.Context, tenantID, id uuid.UUID, actorID uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, tenantID, id, StatusCompleted, actorID, events.TypeAppointmentCompleted, nil)
}

// Cancel terminates a scheduled or confirmed appointment. A reason is
// mandatory.
func (s *Service) Cancel(ctx context.Context, tenantID, id uuid.UUID, reason string, actorID uuid.UUID) (*Appointment, error) {
	if reason == "" {
		return nil, ErrCancelReasonMissing
	}
	return s.transition(ctx, tenantID, id, StatusCancelled, actorID, events.TypeAppointmentCancelled, func(patch *StatusPatch) {
		now := s.clk.Now()
		patch.CancellationReason = &reason
		patch.CancelledAt = &now
		if actorID != uuid.Nil {
			actor := actorID
			patch.CancelledBy = &actor
		}
	})
}

// MarkNoShow records the patient's failure to attend.
func (s *Service) MarkNoShow(ctx context.Context, tenantID, id uuid.UUID, actorID uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, tenantID, id, StatusNoShow, actorID, events.TypeAppointmentNoShow, nil)
}

func (s *Service) transition(ctx context.Context, tenantID, id uuid.UUID, to Status, actorID uuid.UUID, eventType string, apply func(*StatusPatch)) (*Appointment, error) {
	current, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
	}

	var patch StatusPatch
	if apply != nil {
		apply(&patch)
	}

	updated, err := s.repo.UpdateStatus(ctx, tenantID, id, current.Status, to, patch)
	if err != nil {
		return nil, fmt.Errorf("transition to %s: %w", to, err)
	}

	s.publish(ctx, eventType, updated, actorID, map[string]any{"status": string(to)})
	return updated, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

func (s *Service) ListByDoctor(ctx context.Context, tenantID, doctorID uuid.UUID, from, to time.Time, statuses []Status) ([]Appointment, error) {
	return s.repo.ListByDoctor(ctx, tenantID, doctorID, from, to, statuses)
}

func (s *Service) ListByPatient(ctx context.Context, tenantID, patientID uuid.UUID, from, to time.Time, statuses []Status) ([]Appointment, error) {
	return s.repo.ListByPatient(ctx, tenantID, patientID, from, to, statuses)
}

// SweepNoShows marks every scheduled or confirmed appointment whose window
// ended more than the grace period ago as a no-show. Called periodically by
// the worker; returns the number of appointments swept.
func (s *Service) SweepNoShows(ctx context.Context) (int, error) {
	cutoff := s.clk.Now().Add(-s.noShowGrace)
	overdue, err := s.repo.FindOverdue(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find overdue appointments: %w", err)
	}

	swept := 0
	for _, appt := range overdue {
		updated, err := s.repo.UpdateStatus(ctx, appt.TenantID, appt.ID, appt.Status, StatusNoShow, StatusPatch{})
		if err != nil {
			// The row may have transitioned concurrently; skip it.
			s.logger.Warn().Err(err).Str("appointment_id", appt.ID.String()).Msg("no-show sweep skipped appointment")
			continue
		}
		swept++
		s.publish(ctx, events.TypeAppointmentNoShow, updated, uuid.Nil, map[string]any{"reason": "sweep"})
	}
	return swept, nil
}

func (s *Service) publish(ctx context.Context, eventType string, appt *Appointment, actorID uuid.UUID, payload map[string]any) {
	s.sink.Publish(ctx, events.Event{
		Type:          eventType,
		TenantID:      appt.TenantID,
		AggregateID:   appt.ID,
		AggregateType: "appointment",
		ActorID:       actorID,
		Payload:       payload,
	})
}

func (s *Service) recordConflict(err error) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		s.metrics.ObserveBooking("conflict")
		s.metrics.ObserveConflict(conflict.Type)
	}
}
