package store

import (
	"context"

	"github.com/google/uuid"

	"medibook/backend/internal/domain"
)

type AvailabilityStore interface {
	// Upsert inserts the slot or, when (provider, date, start_time) already
	// exists, updates it in place. Re-declaring a window never duplicates.
	Upsert(ctx context.Context, slot domain.AvailabilitySlot) (domain.AvailabilitySlot, error)

	// ListOwn returns a provider's declared slots, all dates when date is
	// empty, ordered by (date, start_time).
	ListOwn(ctx context.Context, providerID uuid.UUID, date string) ([]domain.AvailabilitySlot, error)

	SetAvailable(ctx context.Context, id, providerID uuid.UUID, available bool) (domain.AvailabilitySlot, error)
	Delete(ctx context.Context, id, providerID uuid.UUID) error

	// AvailableStarts lists start times of slots declared available for the
	// provider/date, ordered ascending.
	AvailableStarts(ctx context.Context, providerID uuid.UUID, date string) ([]string, error)

	// CountDeclared counts declared slots for the provider/date regardless
	// of the is_available flag. Any declared slot makes the declaration the
	// authoritative source for that date.
	CountDeclared(ctx context.Context, providerID uuid.UUID, date string) (int, error)
}
