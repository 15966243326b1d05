package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CreateSchedule stores a new weekly template for t.DoctorID.
func (s *Service) CreateSchedule(ctx context.Context, t *ScheduleTemplate) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, err := s.store.GetDoctorByID(ctx, t.DoctorID); err != nil {
		return fmt.Errorf("load doctor: %w", err)
	}

	if t.IsActive {
		if err := s.ensureWeekdayFree(ctx, t.DoctorID, t.Weekday, uuid.Nil); err != nil {
			return err
		}
	}

	now := s.opts.Now()
	t.ID = uuid.New()
	t.CreatedAt = now
	t.UpdatedAt = now

	if err := s.store.CreateSchedule(ctx, t); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// ListSchedulesForDoctor returns the doctor's templates, Monday first.
func (s *Service) ListSchedulesForDoctor(ctx context.Context, doctorID uuid.UUID) ([]ScheduleTemplate, error) {
	if _, err := s.store.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	items, err := s.store.ListSchedulesByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return items, nil
}

func (s *Service) GetSchedule(ctx context.Context, id uuid.UUID) (*ScheduleTemplate, error) {
	t, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	return t, nil
}

// UpdateSchedule applies patch to template id. Slots already materialized
// from the old rule are left as they are.
func (s *Service) UpdateSchedule(ctx context.Context, id uuid.UUID, patch SchedulePatch) (*ScheduleTemplate, error) {
	t, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}

	before := *t
	patch.apply(t)
	if err := t.Validate(); err != nil {
		return nil, err
	}

	claimsWeekday := t.IsActive && (!before.IsActive || before.Weekday != t.Weekday)
	if claimsWeekday {
		if err := s.ensureWeekdayFree(ctx, t.DoctorID, t.Weekday, t.ID); err != nil {
			return nil, err
		}
	}

	t.UpdatedAt = s.opts.Now()
	if err := s.store.UpdateSchedule(ctx, t); err != nil {
		return nil, fmt.Errorf("update schedule: %w", err)
	}
	return t, nil
}

// DeleteSchedule removes the template; its materialized slots stay bookable.
func (s *Service) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteSchedule(ctx, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}

// ensureWeekdayFree is the friendly pre-check; the store's unique index is
// what actually holds the invariant under concurrent writers.
func (s *Service) ensureWeekdayFree(ctx context.Context, doctorID uuid.UUID, day Weekday, except uuid.UUID) error {
	existing, err := s.store.ListSchedulesByDoctor(ctx, doctorID)
	if err != nil {
		return fmt.Errorf("list schedules: %w", err)
	}
	for _, e := range existing {
		if e.ID != except && e.IsActive && e.Weekday == day {
			return fmt.Errorf("%w: doctor %s already has an active %s schedule (%s)", ErrConflict, doctorID, day, e.ID)
		}
	}
	return nil
}
