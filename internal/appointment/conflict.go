package appointment

import (
	"context"
	"fmt"
)

// OverlapSource is the query surface the detector needs; *PgRepository
// satisfies it, as do in-memory fakes in tests.
type OverlapSource interface {
	FindOverlapping(ctx context.Context, q OverlapQuery) ([]Appointment, error)
}

// ConflictDetector decides whether a proposed booking collides with an active
// appointment of the doctor or the patient.
type ConflictDetector struct {
	src OverlapSource
}

func NewConflictDetector(src OverlapSource) *ConflictDetector {
	if src == nil {
		panic("appointment: overlap source required")
	}
	return &ConflictDetector{src: src}
}

// Check queries overlapping active appointments and returns a *ConflictError
// for the first collision found, or nil when the window is free. Doctor
// conflicts take priority over patient conflicts; only one conflict is
// reported per call.
func (d *ConflictDetector) Check(ctx context.Context, q OverlapQuery) error {
	overlapping, err := d.src.FindOverlapping(ctx, q)
	if err != nil {
		return fmt.Errorf("find overlapping appointments: %w", err)
	}
	return Classify(q, overlapping)
}

// Classify picks the conflict to report from a set of overlapping
// appointments. It is split from Check so the transactional re-check inside
// the repository can reuse the same reporting rules.
func Classify(q OverlapQuery, overlapping []Appointment) error {
	if len(overlapping) == 0 {
		return nil
	}
	for _, appt := range overlapping {
		if appt.DoctorID == q.DoctorID {
			return &ConflictError{
				Type:          ConflictDoctor,
				AppointmentID: appt.ID,
				Start:         appt.Start,
				End:           appt.End,
			}
		}
	}
	for _, appt := range overlapping {
		if appt.PatientID == q.PatientID {
			return &ConflictError{
				Type:          ConflictPatient,
				AppointmentID: appt.ID,
				Start:         appt.Start,
				End:           appt.End,
			}
		}
	}
	return nil
}
