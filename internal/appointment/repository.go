package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling/internal/timerange"
)

// OverlapQuery describes a proposed window to test against persisted
// appointments. ExcludeID (when non-nil) removes one appointment from
// consideration so a reschedule does not conflict with itself.
type OverlapQuery struct {
	TenantID  uuid.UUID
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      time.Time
	Start     timerange.TimeOfDay
	End       timerange.TimeOfDay
	ExcludeID *uuid.UUID
}

// StatusPatch carries the optional columns written alongside a status change.
type StatusPatch struct {
	ConfirmedAt        *time.Time
	CancellationReason *string
	CancelledBy        *uuid.UUID
	CancelledAt        *time.Time
}

// Repository contains all appointment persistence used by the service and the
// conflict detector.
type Repository interface {
	// FindOverlapping returns active appointments on the query date whose
	// window intersects [Start, End) and whose doctor or patient matches.
	FindOverlapping(ctx context.Context, q OverlapQuery) ([]Appointment, error)

	// CreateIfNoConflict re-runs the overlap check and the insert inside one
	// transaction, serialized per (doctor, date). When conflicts exist the
	// returned slice is non-empty and no row is written.
	CreateIfNoConflict(ctx context.Context, appt Appointment) (*Appointment, []Appointment, error)

	// RescheduleIfNoConflict moves an appointment's window with the same
	// transactional discipline, guarding on a rescheduleable status.
	RescheduleIfNoConflict(ctx context.Context, tenantID, id uuid.UUID, date time.Time, start, end timerange.TimeOfDay) (*Appointment, []Appointment, error)

	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Appointment, error)

	// UpdateStatus performs a compare-and-set transition, failing with
	// ErrNotFound when the row is gone or its status no longer matches from.
	UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, from, to Status, patch StatusPatch) (*Appointment, error)

	ListByDoctor(ctx context.Context, tenantID, doctorID uuid.UUID, from, to time.Time, statuses []Status) ([]Appointment, error)
	ListByPatient(ctx context.Context, tenantID, patientID uuid.UUID, from, to time.Time, statuses []Status) ([]Appointment, error)

	// ListActiveForDoctorDate feeds slot generation: every active appointment
	// occupying the doctor's calendar on one date.
	ListActiveForDoctorDate(ctx context.Context, tenantID, doctorID uuid.UUID, date time.Time) ([]Appointment, error)

	// FindOverdue returns active appointments whose window ended before the
	// cutoff instant, for the no-show sweep.
	FindOverdue(ctx context.Context, cutoff time.Time) ([]Appointment, error)
}
