package appointment

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

const appointmentColumns = `id, tenant_id, doctor_id, patient_id, date, start_minute, end_minute, status,
	reason_for_visit, notes, cancellation_reason, cancelled_by, cancelled_at, confirmed_at, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var start, end int
	err := row.Scan(
		&a.ID,
		&a.TenantID,
		&a.DoctorID,
		&a.PatientID,
		&a.Date,
		&start,
		&end,
		&a.Status,
		&a.ReasonForVisit,
		&a.Notes,
		&a.CancellationReason,
		&a.CancelledBy,
		&a.CancelledAt,
		&a.ConfirmedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.Start = timerange.TimeOfDay(start)
	a.End = timerange.TimeOfDay(end)
	a.Date = timerange.DateOf(a.Date)
	return &a, nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// overlapSQL selects the active appointments on one date whose half-open
// window intersects [$6, $7) and whose doctor or patient matches. $8 excludes
// one id (pass NULL to exclude nothing).
const overlapSQL = `
	SELECT ` + appointmentColumns + `
	FROM appointments
	WHERE tenant_id = $1
	  AND date = $2
	  AND status = ANY($3)
	  AND (doctor_id = $4 OR patient_id = $5)
	  AND start_minute < $7
	  AND $6 < end_minute
	  AND ($8::uuid IS NULL OR id <> $8)
	ORDER BY start_minute`

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) FindOverlapping(ctx context.Context, q OverlapQuery) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, overlapSQL,
		q.TenantID, timerange.DateOf(q.Date), statusStrings(activeStatuses),
		q.DoctorID, q.PatientID, int(q.Start), int(q.End), q.ExcludeID,
	)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// bookingLockKey serializes all writes touching one doctor's calendar day.
func bookingLockKey(tenantID, doctorID uuid.UUID, date time.Time) string {
	return tenantID.String() + ":" + doctorID.String() + ":" + date.Format(timerange.DateLayout)
}

func (r *PgRepository) CreateIfNoConflict(ctx context.Context, appt Appointment) (*Appointment, []Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	date := timerange.DateOf(appt.Date)
	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		bookingLockKey(appt.TenantID, appt.DoctorID, date),
	); err != nil {
		return nil, nil, err
	}

	rows, err := tx.Query(ctx, overlapSQL,
		appt.TenantID, date, statusStrings(activeStatuses),
		appt.DoctorID, appt.PatientID, int(appt.Start), int(appt.End), nil,
	)
	if err != nil {
		return nil, nil, err
	}
	conflicts, err := collectAppointments(rows)
	if err != nil {
		return nil, nil, err
	}
	if len(conflicts) > 0 {
		return nil, conflicts, nil
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, tenant_id, doctor_id, patient_id, date, start_minute, end_minute, status,
			reason_for_visit, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'scheduled', $8, $9, now(), now())
		RETURNING `+appointmentColumns,
		uuid.New(), appt.TenantID, appt.DoctorID, appt.PatientID, date,
		int(appt.Start), int(appt.End), appt.ReasonForVisit, appt.Notes,
	)
	created, err := scanAppointment(row)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return created, nil, nil
}

func (r *PgRepository) RescheduleIfNoConflict(ctx context.Context, tenantID, id uuid.UUID, date time.Time, start, end timerange.TimeOfDay) (*Appointment, []Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	current, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1 AND id = $2
		FOR UPDATE
	`, tenantID, id))
	if err != nil {
		return nil, nil, err
	}
	if !current.Status.Rescheduleable() {
		return nil, nil, ErrInvalidTransition
	}

	date = timerange.DateOf(date)
	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		bookingLockKey(tenantID, current.DoctorID, date),
	); err != nil {
		return nil, nil, err
	}

	rows, err := tx.Query(ctx, overlapSQL,
		tenantID, date, statusStrings(activeStatuses),
		current.DoctorID, current.PatientID, int(start), int(end), &id,
	)
	if err != nil {
		return nil, nil, err
	}
	conflicts, err := collectAppointments(rows)
	if err != nil {
		return nil, nil, err
	}
	if len(conflicts) > 0 {
		return nil, conflicts, nil
	}

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET date = $3, start_minute = $4, end_minute = $5, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING `+appointmentColumns,
		tenantID, id, date, int(start), int(end),
	)
	updated, err := scanAppointment(row)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return updated, nil, nil
}

func (r *PgRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, from, to Status, patch StatusPatch) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $4,
		    confirmed_at        = COALESCE($5, confirmed_at),
		    cancellation_reason = COALESCE($6, cancellation_reason),
		    cancelled_by        = COALESCE($7, cancelled_by),
		    cancelled_at        = COALESCE($8, cancelled_at),
		    updated_at          = now()
		WHERE tenant_id = $1 AND id = $2 AND status = $3
		RETURNING `+appointmentColumns,
		tenantID, id, from, to,
		patch.ConfirmedAt, patch.CancellationReason, patch.CancelledBy, patch.CancelledAt,
	)
	return scanAppointment(row)
}

func (r *PgRepository) listByParty(ctx context.Context, column string, tenantID, partyID uuid.UUID, from, to time.Time, statuses []Status) ([]Appointment, error) {
	if len(statuses) == 0 {
		statuses = []Status{StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow}
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1 AND `+column+` = $2
		  AND date BETWEEN $3 AND $4
		  AND status = ANY($5)
		ORDER BY date, start_minute
	`, tenantID, partyID, timerange.DateOf(from), timerange.DateOf(to), statusStrings(statuses))
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, tenantID, doctorID uuid.UUID, from, to time.Time, statuses []Status) ([]Appointment, error) {
	return r.listByParty(ctx, "doctor_id", tenantID, doctorID, from, to, statuses)
}

func (r *PgRepository) ListByPatient(ctx context.Context, tenantID, patientID uuid.UUID, from, to time.Time, statuses []Status) ([]Appointment, error) {
	return r.listByParty(ctx, "patient_id", tenantID, patientID, from, to, statuses)
}

func (r *PgRepository) ListActiveForDoctorDate(ctx context.Context, tenantID, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1 AND doctor_id = $2 AND date = $3
		  AND status = ANY($4)
		ORDER BY start_minute
	`, tenantID, doctorID, timerange.DateOf(date), statusStrings(activeStatuses))
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) FindOverdue(ctx context.Context, cutoff time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = ANY($1)
		  AND date + make_interval(mins => end_minute) < $2
		ORDER BY date, start_minute
	`, statusStrings([]Status{StatusScheduled, StatusConfirmed}), cutoff)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}
