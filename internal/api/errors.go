package api

import (
	"errors"
	"net/http"

	"github.com/clinicore/scheduling/internal/appointment"
	redisclient "github.com/clinicore/scheduling/internal/redis"
	"github.com/clinicore/scheduling/internal/schedule"
	"github.com/clinicore/scheduling/internal/slots"
)

// respondDomainError maps domain errors onto HTTP responses. Unknown errors
// become opaque 500s.
func respondDomainError(w http.ResponseWriter, err error) {
	var (
		conflict   *appointment.ConflictError
		policy     *appointment.PolicyError
		batch      *schedule.ScheduleValidationError
		validation *schedule.ValidationError
	)

	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "booking_conflict",
			Details: conflict.Error(),
			Conflict: &ConflictDetail{
				Type:          conflict.Type,
				AppointmentID: conflict.AppointmentID,
				Start:         conflict.Start,
				End:           conflict.End,
			},
		})
	case errors.As(err, &policy):
		writeError(w, http.StatusUnprocessableEntity, "policy_violation", policy.Error())
	case errors.As(err, &batch):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:      "invalid_schedule",
			Violations: batch.Violations,
		})
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "validation_failed", validation.Error())
	case errors.Is(err, appointment.ErrCancelReasonMissing):
		writeError(w, http.StatusBadRequest, "cancellation_reason_required", err.Error())
	case errors.Is(err, slots.ErrBadDuration):
		writeError(w, http.StatusBadRequest, "invalid_duration", err.Error())
	case errors.Is(err, appointment.ErrNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, schedule.ErrOverrideNotFound):
		writeError(w, http.StatusNotFound, "override_not_found", err.Error())
	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "calendar_busy", "the doctor's calendar is being updated, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}
