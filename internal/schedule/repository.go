package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all schedule persistence used by the service.
type Repository interface {
	// ReplaceWeekly atomically swaps the doctor's entire weekly schedule:
	// delete existing rows, insert the new set, one transaction.
	ReplaceWeekly(ctx context.Context, tenantID, doctorID uuid.UUID, slots []WeeklySlot) ([]WeeklySlot, error)
	GetWeekly(ctx context.Context, tenantID, doctorID uuid.UUID) ([]WeeklySlot, error)

	// UpsertOverride inserts or replaces the override keyed on
	// (tenant, doctor, date).
	UpsertOverride(ctx context.Context, ov Override) (*Override, error)
	GetOverride(ctx context.Context, tenantID, doctorID uuid.UUID, date time.Time) (*Override, error)
	ListOverrides(ctx context.Context, tenantID, doctorID uuid.UUID, from, to time.Time) ([]Override, error)
	DeleteOverride(ctx context.Context, tenantID, id uuid.UUID) error
}
