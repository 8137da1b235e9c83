package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/scheduling/internal/timerange"
)

// fakeLedger implements the overlap query with the same semantics as the SQL:
// active status, same date, matching party, half-open window intersection,
// optional exclusion.
type fakeLedger struct {
	appointments []Appointment
}

func (f *fakeLedger) FindOverlapping(_ context.Context, q OverlapQuery) ([]Appointment, error) {
	date := timerange.DateOf(q.Date)
	var out []Appointment
	for _, a := range f.appointments {
		if a.TenantID != q.TenantID || !a.Status.Active() {
			continue
		}
		if !timerange.DateOf(a.Date).Equal(date) {
			continue
		}
		if a.DoctorID != q.DoctorID && a.PatientID != q.PatientID {
			continue
		}
		if q.ExcludeID != nil && a.ID == *q.ExcludeID {
			continue
		}
		if timerange.Overlaps(a.Start, a.End, q.Start, q.End) {
			out = append(out, a)
		}
	}
	return out, nil
}

func TestConflictDetector(t *testing.T) {
	tenantID := uuid.New()
	doctorID := uuid.New()
	patientID := uuid.New()
	otherDoctor := uuid.New()
	otherPatient := uuid.New()
	date := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	existing := Appointment{
		ID:        uuid.New(),
		TenantID:  tenantID,
		DoctorID:  doctorID,
		PatientID: otherPatient,
		Date:      date,
		Start:     600, // 10:00
		End:       630, // 10:30
		Status:    StatusScheduled,
	}
	detector := NewConflictDetector(&fakeLedger{appointments: []Appointment{existing}})

	base := OverlapQuery{
		TenantID:  tenantID,
		DoctorID:  doctorID,
		PatientID: patientID,
		Date:      date,
	}

	t.Run("doctor overlap raises doctor conflict", func(t *testing.T) {
		q := base
		q.Start, q.End = 615, 645 // 10:15-10:45
		err := detector.Check(context.Background(), q)
		var ce *ConflictError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, ConflictDoctor, ce.Type)
		assert.Equal(t, existing.ID, ce.AppointmentID)
		assert.Equal(t, existing.Start, ce.Start)
		assert.Equal(t, existing.End, ce.End)
	})

	t.Run("touching boundary is not a conflict", func(t *testing.T) {
		q := base
		q.Start, q.End = 630, 660 // 10:30-11:00
		assert.NoError(t, detector.Check(context.Background(), q))
	})

	t.Run("free window passes", func(t *testing.T) {
		q := base
		q.Start, q.End = 540, 570
		assert.NoError(t, detector.Check(context.Background(), q))
	})

	t.Run("patient double-booked elsewhere", func(t *testing.T) {
		patientBusy := existing
		patientBusy.ID = uuid.New()
		patientBusy.DoctorID = otherDoctor
		patientBusy.PatientID = patientID
		d := NewConflictDetector(&fakeLedger{appointments: []Appointment{patientBusy}})

		q := base
		q.Start, q.End = 600, 630
		err := d.Check(context.Background(), q)
		var ce *ConflictError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, ConflictPatient, ce.Type)
	})

	t.Run("doctor conflict wins over patient conflict", func(t *testing.T) {
		patientBusy := Appointment{
			ID: uuid.New(), TenantID: tenantID, DoctorID: otherDoctor, PatientID: patientID,
			Date: date, Start: 600, End: 630, Status: StatusConfirmed,
		}
		d := NewConflictDetector(&fakeLedger{appointments: []Appointment{patientBusy, existing}})

		q := base
		q.Start, q.End = 600, 630
		err := d.Check(context.Background(), q)
		var ce *ConflictError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, ConflictDoctor, ce.Type)
	})

	t.Run("excluded appointment does not conflict with itself", func(t *testing.T) {
		q := base
		q.Start, q.End = 600, 630
		q.ExcludeID = &existing.ID
		assert.NoError(t, detector.Check(context.Background(), q))
	})

	t.Run("cancelled appointments are invisible", func(t *testing.T) {
		cancelled := existing
		cancelled.ID = uuid.New()
		cancelled.Status = StatusCancelled
		d := NewConflictDetector(&fakeLedger{appointments: []Appointment{cancelled}})

		q := base
		q.Start, q.End = 600, 630
		assert.NoError(t, d.Check(context.Background(), q))
	})
}
