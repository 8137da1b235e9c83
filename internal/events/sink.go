package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Domain event types emitted by the scheduling core.
const (
	TypeAppointmentCreated     = "appointment.created"
	TypeAppointmentConfirmed   = "appointment.confirmed"
	TypeAppointmentStarted     = "appointment.started"
	TypeAppointmentCompleted   = "appointment.completed"
	TypeAppointmentCancelled   = "appointment.cancelled"
	TypeAppointmentRescheduled = "appointment.rescheduled"
	TypeAppointmentNoShow      = "appointment.no_show"
	TypeScheduleReplaced       = "schedule.replaced"
	TypeOverrideUpserted       = "override.upserted"
	TypeOverrideDeleted        = "override.deleted"
)

// Event is an immutable record of a committed state change.
type Event struct {
	Type          string
	TenantID      uuid.UUID
	AggregateID   uuid.UUID
	AggregateType string
	ActorID       uuid.UUID // uuid.Nil when the change was system-initiated
	Payload       any
}

// Sink receives domain events after successful mutations. Publishing is
// fire-and-forget: a sink failure must never fail the mutation that produced
// the event.
type Sink interface {
	Publish(ctx context.Context, ev Event)
}

// DB is the narrow pgx surface the sink writes through.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PgSink appends events to the domain_events table.
type PgSink struct {
	db     DB
	logger zerolog.Logger
}

func NewPgSink(db DB) *PgSink {
	return &PgSink{db: db, logger: log.With().Str("component", "events").Logger()}
}

func (s *PgSink) Publish(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", ev.Type).Msg("marshal event payload")
		payload = []byte("{}")
	}

	var actor *uuid.UUID
	if ev.ActorID != uuid.Nil {
		actor = &ev.ActorID
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO domain_events (id, tenant_id, event_type, aggregate_id, aggregate_type, actor_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.New(), ev.TenantID, ev.Type, ev.AggregateID, ev.AggregateType, actor, payload, time.Now().UTC())
	if err != nil {
		s.logger.Error().Err(err).
			Str("event_type", ev.Type).
			Str("aggregate_id", ev.AggregateID.String()).
			Msg("insert domain event")
	}
}

type nopSink struct{}

func (nopSink) Publish(context.Context, Event) {}

// Nop returns a sink that discards every event.
func Nop() Sink { return nopSink{} }
