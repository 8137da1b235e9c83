package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling/internal/access"
	"github.com/clinicore/scheduling/internal/appointment"
	"github.com/clinicore/scheduling/internal/timerange"
)

// redactClinical strips fields the actor may not read. Notes are the doctor's
// confidential record; the visit reason is shared clinical data the patient
// always sees on their own appointment.
func redactClinical(ctx context.Context, resp *AppointmentResponse, a *appointment.Appointment) {
	role := access.Role(GetActorRole(ctx))
	actorID := GetActorID(ctx)
	if !access.CanView(role, actorID, a.DoctorID, true) {
		resp.Notes = nil
	}
	if !access.CanView(role, actorID, a.PatientID, false) {
		resp.ReasonForVisit = nil
	}
}

func bookAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		date, err := timerange.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		appt, err := svc.Book(r.Context(), appointment.BookingRequest{
			TenantID:       GetTenantID(r.Context()),
			DoctorID:       doctorID,
			PatientID:      patientID,
			Date:           date,
			Start:          req.Start,
			End:            req.End,
			ReasonForVisit: req.ReasonForVisit,
			Notes:          req.Notes,
			ActorID:        GetActorID(r.Context()),
		})
		if err != nil {
			respondDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Get(r.Context(), GetTenantID(r.Context()), id)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		resp := toAppointmentResponse(appt)
		redactClinical(r.Context(), &resp, appt)
		writeJSON(w, http.StatusOK, resp)
	}
}

func listAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		doctorRaw, patientRaw := q.Get("doctor_id"), q.Get("patient_id")
		if (doctorRaw == "") == (patientRaw == "") {
			writeError(w, http.StatusBadRequest, "invalid_filter", "exactly one of doctor_id or patient_id is required")
			return
		}

		from, err := timerange.ParseDate(q.Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "from must be YYYY-MM-DD")
			return
		}
		to, err := timerange.ParseDate(q.Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "to must be YYYY-MM-DD")
			return
		}

		var statuses []appointment.Status
		for _, s := range q["status"] {
			statuses = append(statuses, appointment.Status(s))
		}

		ctx := r.Context()
		tenantID := GetTenantID(ctx)

		var items []appointment.Appointment
		if doctorRaw != "" {
			doctorID, err := uuid.Parse(doctorRaw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
			items, err = svc.ListByDoctor(ctx, tenantID, doctorID, from, to, statuses)
			if err != nil {
				respondDomainError(w, err)
				return
			}
		} else {
			patientID, err := uuid.Parse(patientRaw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			items, err = svc.ListByPatient(ctx, tenantID, patientID, from, to, statuses)
			if err != nil {
				respondDomainError(w, err)
				return
			}
		}

		out := toAppointmentResponses(items)
		for i := range out {
			redactClinical(ctx, &out[i], &items[i])
		}
		writeJSON(w, http.StatusOK, map[string]any{"appointments": out})
	}
}

func rescheduleAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		date, err := timerange.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		ctx := r.Context()
		appt, err := svc.Reschedule(ctx, GetTenantID(ctx), id, date, req.Start, req.End, GetActorID(ctx))
		if err != nil {
			respondDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

// transitionFn matches the single-step lifecycle methods of the appointment
// service (confirm, start, complete, no-show).
type transitionFn func(ctx context.Context, tenantID, id, actorID uuid.UUID) (*appointment.Appointment, error)

func transitionHandler(fn transitionFn) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		ctx := r.Context()
		appt, err := fn(ctx, GetTenantID(ctx), id, GetActorID(ctx))
		if err != nil {
			respondDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req CancelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		ctx := r.Context()
		appt, err := svc.Cancel(ctx, GetTenantID(ctx), id, req.Reason, GetActorID(ctx))
		if err != nil {
			respondDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}
