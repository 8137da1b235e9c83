package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceWeeklyRunsInOneTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tenantID := uuid.New()
	doctorID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(tenantID.String() + ":" + doctorID.String()).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec("DELETE FROM weekly_availability").
		WithArgs(tenantID, doctorID).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectQuery("INSERT INTO weekly_availability").
		WithArgs(pgxmock.AnyArg(), tenantID, doctorID, 1, 540, 720, true).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "tenant_id", "doctor_id", "day_of_week", "start_minute", "end_minute", "active", "created_at", "updated_at",
		}).AddRow(uuid.New(), tenantID, doctorID, 1, 540, 720, true, now, now))
	mock.ExpectCommit()

	repo := NewPgRepositoryWithDB(mock)
	stored, err := repo.ReplaceWeekly(context.Background(), tenantID, doctorID, []WeeklySlot{
		{DayOfWeek: 1, Start: 540, End: 720, Active: true},
	})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 1, stored[0].DayOfWeek)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceWeeklyRollsBackOnInsertFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tenantID := uuid.New()
	doctorID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec("DELETE FROM weekly_availability").
		WithArgs(tenantID, doctorID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectQuery("INSERT INTO weekly_availability").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	repo := NewPgRepositoryWithDB(mock)
	_, err = repo.ReplaceWeekly(context.Background(), tenantID, doctorID, []WeeklySlot{
		{DayOfWeek: 2, Start: 480, End: 600, Active: true},
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOverrideMissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tenantID := uuid.New()
	id := uuid.New()

	mock.ExpectExec("DELETE FROM availability_overrides").
		WithArgs(tenantID, id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := NewPgRepositoryWithDB(mock)
	err = repo.DeleteOverride(context.Background(), tenantID, id)
	assert.ErrorIs(t, err, ErrOverrideNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
