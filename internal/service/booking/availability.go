package booking

import (
	"context"

	"github.com/google/uuid"

	"medibook/backend/internal/domain"
)

type DeclareInput struct {
	Date            string
	StartTime       string
	EndTime         string
	DurationMinutes int
}

// DeclareWindow expands a provider's working window into slots and upserts
// each one. Re-declaring the same window updates in place; the slot count
// for the date does not grow.
func (s *Service) DeclareWindow(ctx context.Context, caller Caller, in DeclareInput) ([]domain.AvailabilitySlot, error) {
	if caller.Role != domain.RoleProvider {
		return nil, ErrForbidden
	}
	if _, err := domain.ParseDate(in.Date); err != nil {
		return nil, validationError(err.Error())
	}

	duration := in.DurationMinutes
	if duration == 0 {
		duration = domain.DefaultDurationMinutes
	}

	slots, err := domain.GenerateSlots(in.StartTime, in.EndTime, duration)
	if err != nil {
		return nil, validationError(err.Error())
	}
	if len(slots) == 0 {
		return nil, validationError("window is shorter than one slot")
	}

	out := make([]domain.AvailabilitySlot, 0, len(slots))
	for _, sl := range slots {
		saved, err := s.slots.Upsert(ctx, domain.AvailabilitySlot{
			ProviderID:      caller.ID,
			Date:            in.Date,
			StartTime:       sl.StartTime,
			EndTime:         sl.EndTime,
			DurationMinutes: duration,
			IsAvailable:     true,
			MaxBookings:     1,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, saved)
	}
	return out, nil
}

// ListOwnAvailability returns the caller's declared slots, optionally for a
// single date.
func (s *Service) ListOwnAvailability(ctx context.Context, caller Caller, date string) ([]domain.AvailabilitySlot, error) {
	if caller.Role != domain.RoleProvider {
		return nil, ErrForbidden
	}
	if date != "" {
		if _, err := domain.ParseDate(date); err != nil {
			return nil, validationError(err.Error())
		}
	}
	return s.slots.ListOwn(ctx, caller.ID, date)
}

// ToggleAvailability flips a declared slot's is_available flag without
// deleting it, so a provider can block and later reopen a slot.
func (s *Service) ToggleAvailability(ctx context.Context, caller Caller, slotID uuid.UUID, available bool) (domain.AvailabilitySlot, error) {
	if caller.Role != domain.RoleProvider {
		return domain.AvailabilitySlot{}, ErrForbidden
	}
	if slotID == uuid.Nil {
		return domain.AvailabilitySlot{}, validationError("slot_id is required")
	}
	return s.slots.SetAvailable(ctx, slotID, caller.ID, available)
}

// DeleteAvailability removes a declared slot entirely.
func (s *Service) DeleteAvailability(ctx context.Context, caller Caller, slotID uuid.UUID) error {
	if caller.Role != domain.RoleProvider {
		return ErrForbidden
	}
	if slotID == uuid.Nil {
		return validationError("slot_id is required")
	}
	return s.slots.Delete(ctx, slotID, caller.ID)
}
