package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AvailabilitySlot is a provider-declared bookable slot. Declared slots for a
// date replace the default grid for that date entirely.
type AvailabilitySlot struct {
	bun.BaseModel `bun:"table:availability_slots"`

	ID              uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	ProviderID      uuid.UUID `bun:"provider_id,notnull,type:uuid" json:"provider_id"`
	Date            string    `bun:"date,notnull" json:"date"`
	StartTime       string    `bun:"start_time,notnull" json:"start_time"`
	EndTime         string    `bun:"end_time,notnull" json:"end_time"`
	DurationMinutes int       `bun:"duration_minutes,notnull" json:"duration_minutes"`
	IsAvailable     bool      `bun:"is_available,notnull" json:"is_available"`
	MaxBookings     int       `bun:"max_bookings,notnull" json:"max_bookings"`
	CreatedAt       time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt       time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

func (s *AvailabilitySlot) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			s.ID = id
		}
		if s.MaxBookings == 0 {
			s.MaxBookings = 1
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}
