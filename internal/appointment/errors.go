package appointment

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling/internal/timerange"
)

var (
	ErrNotFound            = errors.New("appointment not found")
	ErrInvalidTransition   = errors.New("appointment status does not allow this transition")
	ErrCancelReasonMissing = errors.New("cancellation requires a reason")
)

// Conflict parties.
const (
	ConflictDoctor  = "doctor"
	ConflictPatient = "patient"
)

// ConflictError reports one specific overlapping active appointment. It carries
// the colliding window so callers can render "doctor busy 10:00-10:30" style
// messages.
type ConflictError struct {
	Type          string // ConflictDoctor or ConflictPatient
	AppointmentID uuid.UUID
	Start         timerange.TimeOfDay
	End           timerange.TimeOfDay
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already has an appointment %s-%s", e.Type, e.Start, e.End)
}

// PolicyError reports a business-rule rejection of an otherwise well-formed
// booking request.
type PolicyError struct {
	Rule string
	Msg  string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("booking rejected by %s policy: %s", e.Rule, e.Msg)
}

func policyErrorf(rule, format string, args ...any) *PolicyError {
	return &PolicyError{Rule: rule, Msg: fmt.Sprintf(format, args...)}
}
