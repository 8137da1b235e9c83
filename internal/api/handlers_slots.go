package api

import (
	"net/http"
	"strconv"

	"github.com/clinicore/scheduling/internal/timerange"
)

const defaultSlotDuration = 30 // minutes

func intQuery(r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}

func freeSlotsHandler(svc SlotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := urlUUID(r, "doctorID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		date, err := timerange.ParseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		duration, ok := intQuery(r, "duration", defaultSlotDuration)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_duration", "duration must be an integer number of minutes")
			return
		}

		free, err := svc.FreeSlotsForDate(r.Context(), GetTenantID(r.Context()), doctorID, date, duration)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		if free == nil {
			free = []timerange.Range{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"date":  date.Format(timerange.DateLayout),
			"slots": free,
		})
	}
}

func nextSlotHandler(svc SlotService) http.HandlerFunc {
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
		duration, ok := intQuery(r, "duration", defaultSlotDuration)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_duration", "duration must be an integer number of minutes")
			return
		}
		maxDays, ok := intQuery(r, "max_days", 0)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_max_days", "max_days must be an integer")
			return
		}

		next, err := svc.NextAvailableSlot(r.Context(), GetTenantID(r.Context()), doctorID, from, duration, maxDays)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		if next == nil {
			writeError(w, http.StatusNotFound, "no_slot_available", "no free slot within the scan horizon")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"date": next.Date.Format(timerange.DateLayout),
			"slot": next.Slot,
		})
	}
}
