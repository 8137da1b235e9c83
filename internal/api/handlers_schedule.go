package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/scheduling/internal/schedule"
	"github.com/clinicore/scheduling/internal/timerange"
)

func urlUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

func setScheduleHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := urlUUID(r, "doctorID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		var req SetScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		in := make([]schedule.WeeklySlot, len(req.Slots))
		for i, p := range req.Slots {
			active := true
			if p.Active != nil {
				active = *p.Active
			}
			in[i] = schedule.WeeklySlot{
				DayOfWeek: p.DayOfWeek,
				Start:     p.Start,
				End:       p.End,
				Active:    active,
			}
		}

		stored, err := svc.SetWeeklySchedule(r.Context(), GetTenantID(r.Context()), doctorID, in, GetActorID(r.Context()))
		if err != nil {
			respondDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"slots": stored})
	}
}

func getScheduleHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := urlUUID(r, "doctorID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		slots, err := svc.GetWeeklySchedule(r.Context(), GetTenantID(r.Context()), doctorID)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
	}
}

func upsertOverrideHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := urlUUID(r, "doctorID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		var req UpsertOverrideRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, err := timerange.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		ov, err := svc.UpsertOverride(r.Context(), schedule.Override{
			TenantID:    GetTenantID(r.Context()),
			DoctorID:    doctorID,
			Date:        date,
			Start:       req.Start,
			End:         req.End,
			IsAvailable: req.IsAvailable,
			Reason:      req.Reason,
		}, GetActorID(r.Context()))
		if err != nil {
			respondDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toOverrideResponse(ov))
	}
}

func listOverridesHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := urlUUID(r, "doctorID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		from, err := timerange.ParseDate(r.URL.Query().Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "from must be YYYY-MM-DD")
			return
		}
		to, err := parseDateOr(r, "to", from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "to must be YYYY-MM-DD")
			return
		}

		overrides, err := svc.ListOverrides(r.Context(), GetTenantID(r.Context()), doctorID, from, to)
		if err != nil {
			respondDomainError(w, err)
			return
		}

		out := make([]OverrideResponse, len(overrides))
		for i := range overrides {
			out[i] = toOverrideResponse(&overrides[i])
		}
		writeJSON(w, http.StatusOK, map[string]any{"overrides": out})
	}
}

func deleteOverrideHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := urlUUID(r, "doctorID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}
		overrideID, ok := urlUUID(r, "overrideID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_override_id", "overrideID must be a valid UUID")
			return
		}

		if err := svc.DeleteOverride(r.Context(), GetTenantID(r.Context()), doctorID, overrideID, GetActorID(r.Context())); err != nil {
			respondDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// parseDateOr parses a query date, falling back when the parameter is absent.
func parseDateOr(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return timerange.ParseDate(raw)
}
