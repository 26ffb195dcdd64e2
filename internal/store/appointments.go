package store

import (
	"context"

	"github.com/google/uuid"

	"medibook/backend/internal/domain"
)

// ListFilter scopes and pages an appointment listing. Zero values mean "any".
type ListFilter struct {
	ClientID    uuid.UUID
	ProviderID  uuid.UUID
	Status      domain.AppointmentStatus
	Date        string
	OldestFirst bool
	Page        int
	PageSize    int
}

type ListPage struct {
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
}

// ProviderStats backs the provider dashboard.
type ProviderStats struct {
	Today     int `json:"today"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Total     int `json:"total"`
}

type NotesUpdate struct {
	Notes        *string
	OutcomeNotes *string
}

type AppointmentStore interface {
	// Create persists the appointment in a single atomic operation. When a
	// live appointment already occupies (provider, date, start_time) it
	// returns ErrConflict; the check and the insert are one statement, so
	// two racing callers cannot both succeed.
	Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)

	// SetStatus transitions id from one of the given statuses to the target
	// status. ErrNotFound when the row does not exist, ErrConflict when it
	// exists but is no longer in an allowed source status.
	SetStatus(ctx context.Context, id uuid.UUID, from []domain.AppointmentStatus, to domain.AppointmentStatus) (domain.Appointment, error)
	UpdateNotes(ctx context.Context, id uuid.UUID, set NotesUpdate) (domain.Appointment, error)

	List(ctx context.Context, f ListFilter) ([]domain.Appointment, ListPage, error)
	ProviderStats(ctx context.Context, providerID uuid.UUID, today string) (ProviderStats, error)

	// OccupiedStarts lists start times of live appointments for the
	// provider/date, ordered ascending.
	OccupiedStarts(ctx context.Context, providerID uuid.UUID, date string) ([]string, error)

	// DueReminders lists confirmed, not-yet-reminded appointments on date.
	DueReminders(ctx context.Context, date string) ([]domain.Appointment, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) error
}
