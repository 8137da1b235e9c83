package appointment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/scheduling/internal/clock"
	"github.com/clinicore/scheduling/internal/events"
	"github.com/clinicore/scheduling/internal/timerange"
)

// memRepository is an in-memory stand-in for the pg repository with the same
// conflict semantics.
type memRepository struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*Appointment
}

func newMemRepository() *memRepository {
	return &memRepository{appointments: make(map[uuid.UUID]*Appointment)}
}

func (m *memRepository) overlapping(q OverlapQuery) []Appointment {
	date := timerange.DateOf(q.Date)
	var out []Appointment
	for _, a := range m.appointments {
		if a.TenantID != q.TenantID || !a.Status.Active() {
			continue
		}
		if !timerange.DateOf(a.Date).Equal(date) {
			continue
		}
		if a.DoctorID != q.DoctorID && a.PatientID != q.PatientID {
			continue
		}
		if q.ExcludeID != nil && a.ID == *q.ExcludeID {
			continue
		}
		if timerange.Overlaps(a.Start, a.End, q.Start, q.End) {
			out = append(out, *a)
		}
	}
	return out
}

func (m *memRepository) FindOverlapping(_ context.Context, q OverlapQuery) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overlapping(q), nil
}

func (m *memRepository) CreateIfNoConflict(_ context.Context, appt Appointment) (*Appointment, []Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conflicts := m.overlapping(OverlapQuery{
		TenantID: appt.TenantID, DoctorID: appt.DoctorID, PatientID: appt.PatientID,
		Date: appt.Date, Start: appt.Start, End: appt.End,
	})
	if len(conflicts) > 0 {
		return nil, conflicts, nil
	}
	appt.ID = uuid.New()
	appt.Status = StatusScheduled
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt
	m.appointments[appt.ID] = &appt
	stored := appt
	return &stored, nil, nil
}

func (m *memRepository) RescheduleIfNoConflict(_ context.Context, tenantID, id uuid.UUID, date time.Time, start, end timerange.TimeOfDay) (*Appointment, []Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || a.TenantID != tenantID {
		return nil, nil, ErrNotFound
	}
	if !a.Status.Rescheduleable() {
		return nil, nil, ErrInvalidTransition
	}
	conflicts := m.overlapping(OverlapQuery{
		TenantID: tenantID, DoctorID: a.DoctorID, PatientID: a.PatientID,
		Date: date, Start: start, End: end, ExcludeID: &id,
	})
	if len(conflicts) > 0 {
		return nil, conflicts, nil
	}
	a.Date = timerange.DateOf(date)
	a.Start = start
	a.End = end
	updated := *a
	return &updated, nil, nil
}

func (m *memRepository) GetByID(_ context.Context, tenantID, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || a.TenantID != tenantID {
		return nil, ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *memRepository) UpdateStatus(_ context.Context, tenantID, id uuid.UUID, from, to Status, patch StatusPatch) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || a.TenantID != tenantID || a.Status != from {
		return nil, ErrNotFound
	}
	a.Status = to
	if patch.ConfirmedAt != nil {
		a.ConfirmedAt = patch.ConfirmedAt
	}
	if patch.CancellationReason != nil {
		a.CancellationReason = patch.CancellationReason
	}
	if patch.CancelledBy != nil {
		a.CancelledBy = patch.CancelledBy
	}
	if patch.CancelledAt != nil {
		a.CancelledAt = patch.CancelledAt
	}
	copied := *a
	return &copied, nil
}

func (m *memRepository) listByParty(byDoctor bool, tenantID, partyID uuid.UUID, from, to time.Time, statuses []Status) []Appointment {
	var out []Appointment
	for _, a := range m.appointments {
		if a.TenantID != tenantID {
			continue
		}
		if byDoctor && a.DoctorID != partyID {
			continue
		}
		if !byDoctor && a.PatientID != partyID {
			continue
		}
		if a.Date.Before(timerange.DateOf(from)) || a.Date.After(timerange.DateOf(to)) {
			continue
		}
		if len(statuses) > 0 {
			match := false
			for _, s := range statuses {
				if a.Status == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *a)
	}
	return out
}

func (m *memRepository) ListByDoctor(_ context.Context, tenantID, doctorID uuid.UUID, from, to time.Time, statuses []Status) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listByParty(true, tenantID, doctorID, from, to, statuses), nil
}

func (m *memRepository) ListByPatient(_ context.Context, tenantID, patientID uuid.UUID, from, to time.Time, statuses []Status) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listByParty(false, tenantID, patientID, from, to, statuses), nil
}

func (m *memRepository) ListActiveForDoctorDate(_ context.Context, tenantID, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.appointments {
		if a.TenantID == tenantID && a.DoctorID == doctorID && a.Status.Active() &&
			timerange.DateOf(a.Date).Equal(timerange.DateOf(date)) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memRepository) FindOverdue(_ context.Context, cutoff time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.appointments {
		if a.Status != StatusScheduled && a.Status != StatusConfirmed {
			continue
		}
		if timerange.At(a.Date, a.End).Before(cutoff) {
			out = append(out, *a)
		}
	}
	return out, nil
}

type captureSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *captureSink) Publish(_ context.Context, ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureSink) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Type
	}
	return out
}

var serviceNow = time.Date(2026, time.September, 1, 8, 0, 0, 0, time.UTC)

func newBookingService(t *testing.T) (*Service, *memRepository, *captureSink) {
	t.Helper()
	repo := newMemRepository()
	sink := &captureSink{}
	svc := NewService(ServiceDeps{
		Repo:     repo,
		Policy:   NewPolicy(DefaultPolicyConfig(), clock.Fixed(serviceNow)),
		Detector: NewConflictDetector(repo),
		Sink:     sink,
		Clock:    clock.Fixed(serviceNow),
	})
	return svc, repo, sink
}

func validRequest(t *testing.T) BookingRequest {
	t.Helper()
	return BookingRequest{
		TenantID:  uuid.New(),
		DoctorID:  uuid.New(),
		PatientID: uuid.New(),
		Date:      timerange.DateOf(serviceNow).AddDate(0, 0, 7),
		Start:     600, // 10:00
		End:       630, // 10:30
		ActorID:   uuid.New(),
	}
}

func TestBookHappyPath(t *testing.T) {
	svc, _, sink := newBookingService(t)
	req := validRequest(t)

	appt, err := svc.Book(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, appt.Status)
	assert.Equal(t, req.DoctorID, appt.DoctorID)
	assert.Equal(t, []string{events.TypeAppointmentCreated}, sink.types())
}

func TestBookPolicyRejection(t *testing.T) {
	svc, _, sink := newBookingService(t)
	req := validRequest(t)
	req.Start = 605 // off the 15-minute grid
	req.End = 635

	_, err := svc.Book(context.Background(), req)
	var pe *PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Empty(t, sink.types(), "no event on rejection")
}

func TestBookConflictOnOverlap(t *testing.T) {
	svc, _, _ := newBookingService(t)
	req := validRequest(t)

	_, err := svc.Book(context.Background(), req)
	require.NoError(t, err)

	second := req
	second.PatientID = uuid.New()
	second.Start = 615 // 10:15-10:45 overlaps 10:00-10:30
	second.End = 645

	_, err = svc.Book(context.Background(), second)
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ConflictDoctor, ce.Type)
}

func TestBookTouchingWindowSucceeds(t *testing.T) {
	svc, _, _ := newBookingService(t)
	req := validRequest(t)

	_, err := svc.Book(context.Background(), req)
	require.NoError(t, err)

	second := req
	second.PatientID = uuid.New()
	second.Start = 630 // starts exactly when the first ends
	second.End = 660

	_, err = svc.Book(context.Background(), second)
	assert.NoError(t, err)
}

func TestCancelRequiresReason(t *testing.T) {
	svc, _, _ := newBookingService(t)
	req := validRequest(t)
	appt, err := svc.Book(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), req.TenantID, appt.ID, "", req.ActorID)
	assert.ErrorIs(t, err, ErrCancelReasonMissing)

	cancelled, err := svc.Cancel(context.Background(), req.TenantID, appt.ID, "patient request", req.ActorID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "patient request", *cancelled.CancellationReason)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, req.ActorID, *cancelled.CancelledBy)
}

func TestLifecycleTransitions(t *testing.T) {
	svc, _, sink := newBookingService(t)
	req := validRequest(t)
	appt, err := svc.Book(context.Background(), req)
	require.NoError(t, err)

	confirmed, err := svc.Confirm(context.Background(), req.TenantID, appt.ID, req.ActorID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.NotNil(t, confirmed.ConfirmedAt)

	started, err := svc.StartVisit(context.Background(), req.TenantID, appt.ID, req.ActorID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, started.Status)

	completed, err := svc.Complete(context.Background(), req.TenantID, appt.ID, req.ActorID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)

	assert.Equal(t, []string{
		events.TypeAppointmentCreated,
		events.TypeAppointmentConfirmed,
		events.TypeAppointmentStarted,
		events.TypeAppointmentCompleted,
	}, sink.types())
}

func TestTerminalAppointmentsAreImmutable(t *testing.T) {
	svc, _, _ := newBookingService(t)
	req := validRequest(t)
	appt, err := svc.Book(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), req.TenantID, appt.ID, "closed early", req.ActorID)
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), req.TenantID, appt.ID, req.ActorID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Reschedule(context.Background(), req.TenantID, appt.ID,
		req.Date.AddDate(0, 0, 1), req.Start, req.End, req.ActorID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRescheduleDoesNotConflictWithItself(t *testing.T) {
	svc, _, sink := newBookingService(t)
	req := validRequest(t)
	appt, err := svc.Book(context.Background(), req)
	require.NoError(t, err)

	// Shift within the original window: 10:15-10:45 overlaps the old slot,
	// which must be excluded from its own check.
	moved, err := svc.Reschedule(context.Background(), req.TenantID, appt.ID,
		req.Date, 615, 645, req.ActorID)
	require.NoError(t, err)
	assert.Equal(t, timerange.TimeOfDay(615), moved.Start)
	assert.Contains(t, sink.types(), events.TypeAppointmentRescheduled)
}

func TestRescheduleIntoBusyWindowConflicts(t *testing.T) {
	svc, _, _ := newBookingService(t)
	first := validRequest(t)
	_, err := svc.Book(context.Background(), first)
	require.NoError(t, err)

	second := first
	second.PatientID = uuid.New()
	second.Start = 660 // 11:00-11:30
	second.End = 690
	booked, err := svc.Book(context.Background(), second)
	require.NoError(t, err)

	// Move the second booking onto the first one.
	_, err = svc.Reschedule(context.Background(), first.TenantID, booked.ID,
		first.Date, first.Start, first.End, uuid.Nil)
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ConflictDoctor, ce.Type)
}

func TestSweepNoShows(t *testing.T) {
	repo := newMemRepository()
	sink := &captureSink{}
	// Clock set a week after the booked date so the window is long past.
	later := serviceNow.AddDate(0, 0, 14)
	svc := NewService(ServiceDeps{
		Repo:     repo,
		Policy:   NewPolicy(DefaultPolicyConfig(), clock.Fixed(serviceNow)),
		Detector: NewConflictDetector(repo),
		Sink:     sink,
		Clock:    clock.Fixed(later),
	})

	stale := Appointment{
		TenantID:  uuid.New(),
		DoctorID:  uuid.New(),
		PatientID: uuid.New(),
		Date:      timerange.DateOf(serviceNow).AddDate(0, 0, 7),
		Start:     600,
		End:       630,
	}
	created, conflicts, err := repo.CreateIfNoConflict(context.Background(), stale)
	require.NoError(t, err)
	require.Empty(t, conflicts)

	swept, err := svc.SweepNoShows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	after, err := repo.GetByID(context.Background(), stale.TenantID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNoShow, after.Status)
	assert.Equal(t, []string{events.TypeAppointmentNoShow}, sink.types())
}
