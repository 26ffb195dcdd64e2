package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"medibook/backend/internal/domain"
	"medibook/backend/internal/store"
)

type fakeClock struct {
	now time.Time
}

func (f fakeClock) Now() time.Time { return f.now }

type fakeAppointments struct {
	createFn         func(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	getFn            func(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	setStatusFn      func(ctx context.Context, id uuid.UUID, from []domain.AppointmentStatus, to domain.AppointmentStatus) (domain.Appointment, error)
	updateNotesFn    func(ctx context.Context, id uuid.UUID, set store.NotesUpdate) (domain.Appointment, error)
	listFn           func(ctx context.Context, f store.ListFilter) ([]domain.Appointment, store.ListPage, error)
	providerStatsFn  func(ctx context.Context, providerID uuid.UUID, today string) (store.ProviderStats, error)
	occupiedStartsFn func(ctx context.Context, providerID uuid.UUID, date string) ([]string, error)
	dueRemindersFn   func(ctx context.Context, date string) ([]domain.Appointment, error)
	markReminderFn   func(ctx context.Context, id uuid.UUID) error
}

func (f *fakeAppointments) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, appt)
}

func (f *fakeAppointments) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, id)
}

func (f *fakeAppointments) SetStatus(ctx context.Context, id uuid.UUID, from []domain.AppointmentStatus, to domain.AppointmentStatus) (domain.Appointment, error) {
	if f.setStatusFn == nil {
		panic("SetStatus not configured")
	}
	return f.setStatusFn(ctx, id, from, to)
}

func (f *fakeAppointments) UpdateNotes(ctx context.Context, id uuid.UUID, set store.NotesUpdate) (domain.Appointment, error) {
	if f.updateNotesFn == nil {
		panic("UpdateNotes not configured")
	}
	return f.updateNotesFn(ctx, id, set)
}

func (f *fakeAppointments) List(ctx context.Context, filter store.ListFilter) ([]domain.Appointment, store.ListPage, error) {
	if f.listFn == nil {
		panic("List not configured")
	}
	return f.listFn(ctx, filter)
}

func (f *fakeAppointments) ProviderStats(ctx context.Context, providerID uuid.UUID, today string) (store.ProviderStats, error) {
	if f.providerStatsFn == nil {
		panic("ProviderStats not configured")
	}
	return f.providerStatsFn(ctx, providerID, today)
}

func (f *fakeAppointments) OccupiedStarts(ctx context.Context, providerID uuid.UUID, date string) ([]string, error) {
	if f.occupiedStartsFn == nil {
		return nil, nil
	}
	return f.occupiedStartsFn(ctx, providerID, date)
}

func (f *fakeAppointments) DueReminders(ctx context.Context, date string) ([]domain.Appointment, error) {
	if f.dueRemindersFn == nil {
		panic("DueReminders not configured")
	}
	return f.dueRemindersFn(ctx, date)
}

func (f *fakeAppointments) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	if f.markReminderFn == nil {
		panic("MarkReminderSent not configured")
	}
	return f.markReminderFn(ctx, id)
}

// memAppointments enforces the live-slot uniqueness the way the database
// does: a mutex-guarded claim inside Create, so concurrent callers exercise
// the same atomic insert-or-conflict contract.
type memAppointments struct {
	fakeAppointments

	mu   sync.Mutex
	rows map[uuid.UUID]domain.Appointment
	live map[string]uuid.UUID
}

func newMemAppointments() *memAppointments {
	return &memAppointments{
		rows: make(map[uuid.UUID]domain.Appointment),
		live: make(map[string]uuid.UUID),
	}
}

func slotKey(providerID uuid.UUID, date, start string) string {
	return fmt.Sprintf("%s|%s|%s", providerID, date, start)
}

func (m *memAppointments) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := slotKey(appt.ProviderID, appt.Date, appt.StartTime)
	if _, taken := m.live[key]; taken {
		return domain.Appointment{}, store.ErrConflict
	}
	appt.ID = uuid.New()
	m.rows[appt.ID] = appt
	m.live[key] = appt.ID
	return appt, nil
}

func (m *memAppointments) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type fakeAvailability struct {
	upsertFn          func(ctx context.Context, slot domain.AvailabilitySlot) (domain.AvailabilitySlot, error)
	listOwnFn         func(ctx context.Context, providerID uuid.UUID, date string) ([]domain.AvailabilitySlot, error)
	setAvailableFn    func(ctx context.Context, id, providerID uuid.UUID, available bool) (domain.AvailabilitySlot, error)
	deleteFn          func(ctx context.Context, id, providerID uuid.UUID) error
	availableStartsFn func(ctx context.Context, providerID uuid.UUID, date string) ([]string, error)
	countDeclaredFn   func(ctx context.Context, providerID uuid.UUID, date string) (int, error)
}

func (f *fakeAvailability) Upsert(ctx context.Context, slot domain.AvailabilitySlot) (domain.AvailabilitySlot, error) {
	if f.upsertFn == nil {
		panic("Upsert not configured")
	}
	return f.upsertFn(ctx, slot)
}

func (f *fakeAvailability) ListOwn(ctx context.Context, providerID uuid.UUID, date string) ([]domain.AvailabilitySlot, error) {
	if f.listOwnFn == nil {
		panic("ListOwn not configured")
	}
	return f.listOwnFn(ctx, providerID, date)
}

func (f *fakeAvailability) SetAvailable(ctx context.Context, id, providerID uuid.UUID, available bool) (domain.AvailabilitySlot, error) {
	if f.setAvailableFn == nil {
		panic("SetAvailable not configured")
	}
	return f.setAvailableFn(ctx, id, providerID, available)
}

func (f *fakeAvailability) Delete(ctx context.Context, id, providerID uuid.UUID) error {
	if f.deleteFn == nil {
		panic("Delete not configured")
	}
	return f.deleteFn(ctx, id, providerID)
}

func (f *fakeAvailability) AvailableStarts(ctx context.Context, providerID uuid.UUID, date string) ([]string, error) {
	if f.availableStartsFn == nil {
		return nil, nil
	}
	return f.availableStartsFn(ctx, providerID, date)
}

func (f *fakeAvailability) CountDeclared(ctx context.Context, providerID uuid.UUID, date string) (int, error) {
	if f.countDeclaredFn == nil {
		return 0, nil
	}
	return f.countDeclaredFn(ctx, providerID, date)
}

type fakeDirectory struct {
	users map[uuid.UUID]domain.User
}

func (f *fakeDirectory) Resolve(ctx context.Context, id uuid.UUID) (domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

type sentMessage struct {
	To      string
	Subject string
	Body    string
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *captureNotifier) Send(ctx context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMessage{To: to, Subject: subject, Body: body})
	return nil
}

func (n *captureNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]sentMessage, len(n.sent))
	copy(out, n.sent)
	return out
}
