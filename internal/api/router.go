package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clinicore/scheduling/internal/appointment"
	"github.com/clinicore/scheduling/internal/schedule"
	"github.com/clinicore/scheduling/internal/slots"
	"github.com/clinicore/scheduling/internal/timerange"
)

// ScheduleService manages weekly availability and date overrides.
// *schedule.Service satisfies it.
type ScheduleService interface {
	SetWeeklySchedule(ctx context.Context, tenantID, doctorID uuid.UUID, in []schedule.WeeklySlot, actorID uuid.UUID) ([]schedule.WeeklySlot, error)
	GetWeeklySchedule(ctx context.Context, tenantID, doctorID uuid.UUID) ([]schedule.WeeklySlot, error)
	UpsertOverride(ctx context.Context, ov schedule.Override, actorID uuid.UUID) (*schedule.Override, error)
	ListOverrides(ctx context.Context, tenantID, doctorID uuid.UUID, from, to time.Time) ([]schedule.Override, error)
	DeleteOverride(ctx context.Context, tenantID, doctorID, id uuid.UUID, actorID uuid.UUID) error
}

// AppointmentService books and drives the appointment lifecycle.
// *appointment.Service satisfies it.
type AppointmentService interface {
	Book(ctx context.Context, req appointment.BookingRequest) (*appointment.Appointment, error)
	Reschedule(ctx context.Context, tenantID, id uuid.UUID, date time.Time, start, end timerange.TimeOfDay, actorID uuid.UUID) (*appointment.Appointment, error)
	Confirm(ctx context.Context, tenantID, id uuid.UUID, actorID uuid.UUID) (*appointment.Appointment, error)
	StartVisit(ctx context.Context, tenantID, id uuid.UUID, actorID uuid.UUID) (*appointment.Appointment, error)
	Complete(ctx context.Context, tenantID, id uuid.UUID, actorID uuid.UUID) (*appointment.Appointment, error)
	Cancel(ctx context.Context, tenantID, id uuid.UUID, reason string, actorID uuid.UUID) (*appointment.Appointment, error)
	MarkNoShow(ctx context.Context, tenantID, id uuid.UUID, actorID uuid.UUID) (*appointment.Appointment, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*appointment.Appointment, error)
	ListByDoctor(ctx context.Context, tenantID, doctorID uuid.UUID, from, to time.Time, statuses []appointment.Status) ([]appointment.Appointment, error)
	ListByPatient(ctx context.Context, tenantID, patientID uuid.UUID, from, to time.Time, statuses []appointment.Status) ([]appointment.Appointment, error)
}

// SlotService answers slot-browsing queries. *slots.Generator satisfies it.
type SlotService interface {
	FreeSlotsForDate(ctx context.Context, tenantID, doctorID uuid.UUID, date time.Time, duration int) ([]timerange.Range, error)
	NextAvailableSlot(ctx context.Context, tenantID, doctorID uuid.UUID, fromDate time.Time, duration, maxDays int) (*slots.DaySlot, error)
}

type RouterConfig struct {
	Schedules    ScheduleService
	Appointments AppointmentService
	Slots        SlotService
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Tenant-ID", "X-Actor-ID", "X-Actor-Role", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health and metrics sit outside the tenant scope
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(TenantMiddleware)

		r.Route("/doctors/{doctorID}", func(r chi.Router) {
			r.Put("/schedule", setScheduleHandler(cfg.Schedules))
			r.Get("/schedule", getScheduleHandler(cfg.Schedules))

			r.Put("/overrides", upsertOverrideHandler(cfg.Schedules))
			r.Get("/overrides", listOverridesHandler(cfg.Schedules))
			r.Delete("/overrides/{overrideID}", deleteOverrideHandler(cfg.Schedules))

			r.Get("/slots", freeSlotsHandler(cfg.Slots))
			r.Get("/slots/next", nextSlotHandler(cfg.Slots))
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", bookAppointmentHandler(cfg.Appointments))
			r.Get("/", listAppointmentsHandler(cfg.Appointments))
			r.Get("/{id}", getAppointmentHandler(cfg.Appointments))
			r.Post("/{id}/reschedule", rescheduleAppointmentHandler(cfg.Appointments))
			r.Post("/{id}/confirm", transitionHandler(cfg.Appointments.Confirm))
			r.Post("/{id}/start", transitionHandler(cfg.Appointments.StartVisit))
			r.Post("/{id}/complete", transitionHandler(cfg.Appointments.Complete))
			r.Post("/{id}/no-show", transitionHandler(cfg.Appointments.MarkNoShow))
			r.Post("/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
		})
	})

	return r
}
