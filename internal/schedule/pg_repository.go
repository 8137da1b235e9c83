package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/scheduling/internal/timerange"
)

// DB is the pgx surface the repository needs. *pgxpool.Pool satisfies it, as
// does a pgxmock pool in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	db DB
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{db: pool}
}

func NewPgRepositoryWithDB(db DB) *PgRepository {
	return &PgRepository{db: db}
}

const weeklyColumns = `id, tenant_id, doctor_id, day_of_week, start_minute, end_minute, active, created_at, updated_at`

func scanWeeklySlot(row pgx.Row) (*WeeklySlot, error) {
	var s WeeklySlot
	var start, end int
	err := row.Scan(
		&s.ID,
		&s.TenantID,
		&s.DoctorID,
		&s.DayOfWeek,
		&start,
		&end,
		&s.Active,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Start = timerange.TimeOfDay(start)
	s.End = timerange.TimeOfDay(end)
	return &s, nil
}

const overrideColumns = `id, tenant_id, doctor_id, date, start_minute, end_minute, is_available, reason, created_at, updated_at`

func scanOverride(row pgx.Row) (*Override, error) {
	var o Override
	var start, end *int
	err := row.Scan(
		&o.ID,
		&o.TenantID,
		&o.DoctorID,
		&o.Date,
		&start,
		&end,
		&o.IsAvailable,
		&o.Reason,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOverrideNotFound
		}
		return nil, err
	}
	if start != nil {
		t := timerange.TimeOfDay(*start)
		o.Start = &t
	}
	if end != nil {
		t := timerange.TimeOfDay(*end)
		o.End = &t
	}
	o.Date = timerange.DateOf(o.Date)
	return &o, nil
}

// ReplaceWeekly swaps the doctor's whole week inside one transaction. An
// advisory lock keyed on (tenant, doctor) serializes concurrent replacements
// so readers never observe a half-swapped schedule.
func (r *PgRepository) ReplaceWeekly(ctx context.Context, tenantID, doctorID uuid.UUID, slots []WeeklySlot) ([]WeeklySlot, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		tenantID.String()+":"+doctorID.String(),
	); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM weekly_availability WHERE tenant_id = $1 AND doctor_id = $2`,
		tenantID, doctorID,
	); err != nil {
		return nil, err
	}

	inserted := make([]WeeklySlot, 0, len(slots))
	for _, s := range slots {
		row := tx.QueryRow(ctx, `
			INSERT INTO weekly_availability (id, tenant_id, doctor_id, day_of_week, start_minute, end_minute, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			RETURNING `+weeklyColumns,
			uuid.New(), tenantID, doctorID, s.DayOfWeek, int(s.Start), int(s.End), s.Active,
		)
		stored, err := scanWeeklySlot(row)
		if err != nil {
			return nil, err
		}
		inserted = append(inserted, *stored)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return inserted, nil
}

func (r *PgRepository) GetWeekly(ctx context.Context, tenantID, doctorID uuid.UUID) ([]WeeklySlot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+weeklyColumns+`
		FROM weekly_availability
		WHERE tenant_id = $1 AND doctor_id = $2 AND active
		ORDER BY day_of_week, start_minute
	`, tenantID, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []WeeklySlot
	for rows.Next() {
		s, err := scanWeeklySlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpsertOverride(ctx context.Context, ov Override) (*Override, error) {
	var start, end *int
	if ov.Start != nil {
		v := int(*ov.Start)
		start = &v
	}
	if ov.End != nil {
		v := int(*ov.End)
		end = &v
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO availability_overrides (id, tenant_id, doctor_id, date, start_minute, end_minute, is_available, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (tenant_id, doctor_id, date)
		DO UPDATE SET start_minute = EXCLUDED.start_minute,
		              end_minute   = EXCLUDED.end_minute,
		              is_available = EXCLUDED.is_available,
		              reason       = EXCLUDED.reason,
		              updated_at   = now()
		RETURNING `+overrideColumns,
		uuid.New(), ov.TenantID, ov.DoctorID, ov.Date, start, end, ov.IsAvailable, ov.Reason,
	)
	return scanOverride(row)
}

func (r *PgRepository) GetOverride(ctx context.Context, tenantID, doctorID uuid.UUID, date time.Time) (*Override, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+overrideColumns+`
		FROM availability_overrides
		WHERE tenant_id = $1 AND doctor_id = $2 AND date = $3
	`, tenantID, doctorID, date)
	return scanOverride(row)
}

func (r *PgRepository) ListOverrides(ctx context.Context, tenantID, doctorID uuid.UUID, from, to time.Time) ([]Override, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+overrideColumns+`
		FROM availability_overrides
		WHERE tenant_id = $1 AND doctor_id = $2 AND date BETWEEN $3 AND $4
		ORDER BY date
	`, tenantID, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Override
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	return result, rows.Err()
}

func (r *PgRepository) DeleteOverride(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM availability_overrides WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOverrideNotFound
	}
	return nil
}
