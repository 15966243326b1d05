package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

func (s *Service) ListSlots(ctx context.Context, limit, offset int) ([]Slot, error) {
	limit, offset = clampPage(limit, offset)
	items, err := s.store.ListSlots(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return items, nil
}

func (s *Service) ListSlotsForDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date Date) ([]Slot, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidRange)
	}
	items, err := s.store.ListSlotsByDoctorAndDate(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return items, nil
}

func (s *Service) GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	sl, err := s.store.GetSlot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load slot: %w", err)
	}
	return sl, nil
}

// UpdateSlot applies a doctor hold change. Booking state is never edited
// here; it moves only through BookAppointment and the lifecycle.
func (s *Service) UpdateSlot(ctx context.Context, id uuid.UUID, patch SlotPatch) (*Slot, error) {
	if patch.IsBlocked == nil {
		return s.GetSlot(ctx, id)
	}
	sl, err := s.store.SetSlotBlocked(ctx, id, *patch.IsBlocked)
	if err != nil {
		return nil, fmt.Errorf("update slot: %w", err)
	}
	return sl, nil
}

func (s *Service) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteSlot(ctx, id); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}
