package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusScheduled:  {StatusConfirmed, StatusCancelled, StatusNoShow},
	StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted, StatusNoShow},
}

func (st AppointmentStatus) Valid() bool {
	switch st {
	case StatusScheduled, StatusConfirmed, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (st AppointmentStatus) IsTerminal() bool {
	return st.Valid() && len(transitions[st]) == 0
}

// releasesSlot reports whether entering st gives the slot back.
func (st AppointmentStatus) releasesSlot() bool {
	return st == StatusCancelled || st == StatusNoShow
}

// CanTransition reports whether from -> to is an allowed move.
func CanTransition(from, to AppointmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UpdateAppointmentStatus advances appointment id to status to. Moves outside
// the state machine fail with ErrInvalidTransition and change nothing.
// Entering cancelled or no_show frees the held slot in the same transaction.
func (s *Service) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, to AppointmentStatus) (*Appointment, error) {
	appt, _, err := s.transition(ctx, id, to)
	return appt, err
}

// CancelAppointment cancels id and reports whether a slot was freed.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) (CancelResult, error) {
	_, released, err := s.transition(ctx, id, StatusCancelled)
	if err != nil {
		return CancelResult{}, err
	}
	return CancelResult{Released: released}, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to AppointmentStatus) (*Appointment, bool, error) {
	if !to.Valid() {
		return nil, false, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}

	current, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("load appointment: %w", err)
	}
	if !CanTransition(current.Status, to) {
		return nil, false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
	}

	var (
		updated  *Appointment
		released bool
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.store.UpdateAppointmentStatus(ctx, id, current.Status, to)
		if err != nil {
			return err
		}
		updated = a
		if to.releasesSlot() {
			n, err := s.store.ReleaseAppointmentSlots(ctx, id)
			if err != nil {
				return fmt.Errorf("release slot: %w", err)
			}
			released = n > 0
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrNotFound) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("update appointment status: %w", err)
	}

	event := EventAppointmentStatusChanged
	if to == StatusCancelled {
		event = EventAppointmentCancelled
	}

	s.log.Info().
		Stringer("appointment_id", id).
		Str("from", string(current.Status)).
		Str("to", string(to)).
		Bool("slot_released", released).
		Msg("appointment status changed")

	s.logEvent(ctx, &updated.ID, event, map[string]any{
		"from":          current.Status,
		"to":            to,
		"slot_released": released,
	})
	s.notify(ctx, event, updated)

	return updated, released, nil
}
