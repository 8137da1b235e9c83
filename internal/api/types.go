package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling/internal/appointment"
	"github.com/clinicore/scheduling/internal/schedule"
	"github.com/clinicore/scheduling/internal/timerange"
)

type WeeklySlotPayload struct {
	DayOfWeek int                 `json:"day_of_week"`
	Start     timerange.TimeOfDay `json:"start"`
	End       timerange.TimeOfDay `json:"end"`
	Active    *bool               `json:"active,omitempty"` // defaults to true
}

type SetScheduleRequest struct {
	Slots []WeeklySlotPayload `json:"slots"`
}

type UpsertOverrideRequest struct {
	Date        string               `json:"date"` // YYYY-MM-DD
	Start       *timerange.TimeOfDay `json:"start,omitempty"`
	End         *timerange.TimeOfDay `json:"end,omitempty"`
	IsAvailable bool                 `json:"is_available"`
	Reason      *string              `json:"reason,omitempty"`
}

type BookAppointmentRequest struct {
	DoctorID       string               `json:"doctor_id"`
	PatientID      string               `json:"patient_id"`
	Date           string               `json:"date"` // YYYY-MM-DD
	Start          timerange.TimeOfDay  `json:"start"`
	End            timerange.TimeOfDay  `json:"end"`
	ReasonForVisit *string              `json:"reason_for_visit,omitempty"`
	Notes          *string              `json:"notes,omitempty"`
}

type RescheduleRequest struct {
	Date  string              `json:"date"` // YYYY-MM-DD
	Start timerange.TimeOfDay `json:"start"`
	End   timerange.TimeOfDay `json:"end"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type AppointmentResponse struct {
	ID             uuid.UUID           `json:"id"`
	DoctorID       uuid.UUID           `json:"doctor_id"`
	PatientID      uuid.UUID           `json:"patient_id"`
	Date           string              `json:"date"`
	Start          timerange.TimeOfDay `json:"start"`
	End            timerange.TimeOfDay `json:"end"`
	Status         string              `json:"status"`
	ReasonForVisit *string             `json:"reason_for_visit,omitempty"`
	Notes          *string             `json:"notes,omitempty"`
	ConfirmedAt    *time.Time          `json:"confirmed_at,omitempty"`
	CancelledAt    *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:             a.ID,
		DoctorID:       a.DoctorID,
		PatientID:      a.PatientID,
		Date:           a.Date.Format(timerange.DateLayout),
		Start:          a.Start,
		End:            a.End,
		Status:         string(a.Status),
		ReasonForVisit: a.ReasonForVisit,
		Notes:          a.Notes,
		ConfirmedAt:    a.ConfirmedAt,
		CancelledAt:    a.CancelledAt,
		CreatedAt:      a.CreatedAt,
	}
}

func toAppointmentResponses(items []appointment.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, len(items))
	for i := range items {
		out[i] = toAppointmentResponse(&items[i])
	}
	return out
}

type OverrideResponse struct {
	ID          uuid.UUID            `json:"id"`
	DoctorID    uuid.UUID            `json:"doctor_id"`
	Date        string               `json:"date"`
	Start       *timerange.TimeOfDay `json:"start,omitempty"`
	End         *timerange.TimeOfDay `json:"end,omitempty"`
	IsAvailable bool                 `json:"is_available"`
	Reason      *string              `json:"reason,omitempty"`
}

func toOverrideResponse(ov *schedule.Override) OverrideResponse {
	return OverrideResponse{
		ID:          ov.ID,
		DoctorID:    ov.DoctorID,
		Date:        ov.Date.Format(timerange.DateLayout),
		Start:       ov.Start,
		End:         ov.End,
		IsAvailable: ov.IsAvailable,
		Reason:      ov.Reason,
	}
}

// ConflictDetail names the colliding window of a rejected booking.
type ConflictDetail struct {
	Type          string              `json:"type"` // doctor or patient
	AppointmentID uuid.UUID           `json:"appointment_id"`
	Start         timerange.TimeOfDay `json:"start"`
	End           timerange.TimeOfDay `json:"end"`
}

type ErrorResponse struct {
	Error      string          `json:"error"`
	Details    string          `json:"details,omitempty"`
	Violations []string        `json:"violations,omitempty"`
	Conflict   *ConflictDetail `json:"conflict,omitempty"`
}
