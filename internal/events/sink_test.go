package events

import (
	"context"
	"testing"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestPgSinkPublish(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO domain_events").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sink := NewPgSink(mock)
	sink.Publish(context.Background(), Event{
		Type:          TypeAppointmentCreated,
		TenantID:      uuid.New(),
		AggregateID:   uuid.New(),
		AggregateType: "appointment",
		ActorID:       uuid.New(),
		Payload:       map[string]string{"date": "2026-09-15"},
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgSinkPublishSwallowsInsertFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO domain_events").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(context.DeadlineExceeded)

	sink := NewPgSink(mock)
	// Must not panic or surface the failure to the caller.
	sink.Publish(context.Background(), Event{
		Type:        TypeScheduleReplaced,
		TenantID:    uuid.New(),
		AggregateID: uuid.New(),
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
