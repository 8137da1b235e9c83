package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling/internal/timerange"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// activeStatuses are the statuses that still occupy calendar time and
// therefore count toward conflict detection and slot occupancy.
var activeStatuses = []Status{StatusScheduled, StatusConfirmed, StatusInProgress}

// Active reports whether the appointment still occupies its window.
func (s Status) Active() bool {
	return s == StatusScheduled || s == StatusConfirmed || s == StatusInProgress
}

// Terminal statuses admit no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

var transitions = map[Status][]Status{
	StatusScheduled:  {StatusConfirmed, StatusInProgress, StatusCancelled, StatusNoShow},
	StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted, StatusNoShow},
}

// CanTransition reports whether the status state machine permits from -> to.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Rescheduleable statuses may have their window moved or be cancelled.
func (s Status) Rescheduleable() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

type Appointment struct {
	ID                 uuid.UUID           `json:"id"`
	TenantID           uuid.UUID           `json:"tenant_id"`
	DoctorID           uuid.UUID           `json:"doctor_id"`
	PatientID          uuid.UUID           `json:"patient_id"`
	Date               time.Time           `json:"date"`
	Start              timerange.TimeOfDay `json:"start"`
	End                timerange.TimeOfDay `json:"end"`
	Status             Status              `json:"status"`
	ReasonForVisit     *string             `json:"reason_for_visit,omitempty"`
	Notes              *string             `json:"notes,omitempty"`
	CancellationReason *string             `json:"cancellation_reason,omitempty"`
	CancelledBy        *uuid.UUID          `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty"`
	ConfirmedAt        *time.Time          `json:"confirmed_at,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// Window returns the appointment's half-open time window.
func (a *Appointment) Window() timerange.Range {
	return timerange.Range{Start: a.Start, End: a.End}
}
