package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling/internal/timerange"
)

// WeeklySlot is one recurring availability interval in a doctor's week.
// Slots are replaced wholesale, never mutated field-by-field.
type WeeklySlot struct {
	ID        uuid.UUID           `json:"id"`
	TenantID  uuid.UUID           `json:"tenant_id"`
	DoctorID  uuid.UUID           `json:"doctor_id"`
	DayOfWeek int                 `json:"day_of_week"` // 0=Sunday .. 6=Saturday
	Start     timerange.TimeOfDay `json:"start"`
	End       timerange.TimeOfDay `json:"end"`
	Active    bool                `json:"active"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Override is a date-specific exception that fully supersedes the weekly
// schedule for one calendar day. When IsAvailable is false the day is blocked
// and Start/End are ignored.
type Override struct {
	ID          uuid.UUID            `json:"id"`
	TenantID    uuid.UUID            `json:"tenant_id"`
	DoctorID    uuid.UUID            `json:"doctor_id"`
	Date        time.Time            `json:"date"`
	Start       *timerange.TimeOfDay `json:"start,omitempty"`
	End         *timerange.TimeOfDay `json:"end,omitempty"`
	IsAvailable bool                 `json:"is_available"`
	Reason      *string              `json:"reason,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}
