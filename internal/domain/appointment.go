package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	AppointmentRequested AppointmentStatus = "requested"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentCompleted AppointmentStatus = "completed"
)

// LiveStatuses are the statuses that occupy a provider's slot. At most one
// appointment in a live status may exist per (provider, date, start_time).
func LiveStatuses() []AppointmentStatus {
	return []AppointmentStatus{AppointmentRequested, AppointmentConfirmed}
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentRequested, AppointmentConfirmed, AppointmentCancelled, AppointmentCompleted:
		return true
	}
	return false
}

func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentCancelled || s == AppointmentCompleted
}

const DefaultDurationMinutes = 30

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID              uuid.UUID         `bun:"id,pk,type:uuid" json:"id"`
	ClientID        uuid.UUID         `bun:"client_id,notnull,type:uuid" json:"client_id"`
	ProviderID      uuid.UUID         `bun:"provider_id,notnull,type:uuid" json:"provider_id"`
	Date            string            `bun:"date,notnull" json:"date"`
	StartTime       string            `bun:"start_time,notnull" json:"start_time"`
	DurationMinutes int               `bun:"duration_minutes,notnull" json:"duration_minutes"`
	Status          AppointmentStatus `bun:"status,notnull" json:"status"`
	Reason          string            `bun:"reason,notnull" json:"reason"`
	Notes           string            `bun:"notes" json:"notes,omitempty"`
	OutcomeNotes    string            `bun:"outcome_notes" json:"outcome_notes,omitempty"`
	ReminderSent    bool              `bun:"reminder_sent,notnull" json:"reminder_sent"`
	CreatedAt       time.Time         `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt       time.Time         `bun:"updated_at,notnull" json:"updated_at"`
}

// StartsAt combines the appointment's date and start time in the
// deployment's local wall clock.
func (a Appointment) StartsAt() (time.Time, error) {
	return CombineDateTime(a.Date, a.StartTime)
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ParseDate validates a calendar date in canonical YYYY-MM-DD form.
func ParseDate(date string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, date, time.Local)
	if err != nil || t.Format(DateLayout) != date {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
	}
	return t, nil
}

// ParseClockTime validates a time of day in canonical HH:MM form.
func ParseClockTime(hhmm string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, hhmm)
	if err != nil || t.Format(TimeLayout) != hhmm {
		return time.Time{}, fmt.Errorf("invalid time %q, want HH:MM", hhmm)
	}
	return t, nil
}

// CombineDateTime resolves a (date, time-of-day) pair to an instant in the
// deployment's local wall clock.
func CombineDateTime(date, hhmm string) (time.Time, error) {
	if _, err := ParseDate(date); err != nil {
		return time.Time{}, err
	}
	if _, err := ParseClockTime(hhmm); err != nil {
		return time.Time{}, err
	}
	return time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+hhmm, time.Local)
}
