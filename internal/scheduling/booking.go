package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// BookAppointment claims the slot at (doctorID, date, at) for a new
// appointment. A missing slot fails with ErrSlotNotFound, a taken or held one
// with ErrSlotUnavailable, so callers can tell "generate first" from "pick
// another time". The appointment insert and the conditional slot claim share
// one transaction; of any number of concurrent callers for the same slot
// exactly one commits.
func (s *Service) BookAppointment(ctx context.Context, doctorID uuid.UUID, date Date, at TimeOfDay, draft AppointmentDraft) (*Appointment, error) {
	if draft.Type == "" {
		draft.Type = TypeInPerson
	}
	if !draft.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown appointment type %q", ErrInvalidRange, draft.Type)
	}
	if date.IsZero() || !at.Valid() {
		return nil, fmt.Errorf("%w: date and time are required", ErrInvalidRange)
	}

	if _, err := s.store.GetPatientByID(ctx, draft.PatientID); err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if _, err := s.store.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	slot, err := s.store.GetSlotByKey(ctx, SlotKey{DoctorID: doctorID, Date: date, Time: at})
	if err != nil {
		return nil, fmt.Errorf("load slot: %w", err)
	}
	if !slot.IsAvailable {
		return nil, fmt.Errorf("%w: %s %s is taken or blocked", ErrSlotUnavailable, date, at)
	}

	now := s.opts.Now()
	slotID := slot.ID
	appt := &Appointment{
		ID:            uuid.New(),
		PatientID:     draft.PatientID,
		DoctorID:      doctorID,
		Date:          date,
		Time:          at,
		Type:          draft.Type,
		Status:        StatusScheduled,
		Reason:        draft.Reason,
		Notes:         draft.Notes,
		PaymentStatus: PaymentPending,
		SlotID:        &slotID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateAppointment(ctx, appt); err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		if _, err := s.store.ClaimSlot(ctx, slot.ID, appt.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSlotUnavailable) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("book slot: %w", err)
	}

	s.log.Info().
		Stringer("appointment_id", appt.ID).
		Stringer("slot_id", slot.ID).
		Stringer("doctor_id", doctorID).
		Msg("appointment booked")

	s.logEvent(ctx, &appt.ID, EventAppointmentBooked, map[string]any{
		"slot_id":    slot.ID.String(),
		"patient_id": appt.PatientID.String(),
		"doctor_id":  doctorID.String(),
		"date":       date.String(),
		"time":       at.String(),
	})
	s.notify(ctx, EventAppointmentBooked, appt)

	return appt, nil
}

// ReleaseSlot frees whatever slot appointmentID holds. An appointment that
// never held one is not an error; released reports whether anything changed.
func (s *Service) ReleaseSlot(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	n, err := s.store.ReleaseAppointmentSlots(ctx, appointmentID)
	if err != nil {
		return false, fmt.Errorf("release slot: %w", err)
	}
	return n > 0, nil
}

// RescheduleAppointment moves a scheduled or confirmed appointment to the
// slot at (newDate, newTime). Releasing the old slot and claiming the new one
// share one transaction, so a failed move leaves the original booking intact.
func (s *Service) RescheduleAppointment(ctx context.Context, id uuid.UUID, newDate Date, newTime TimeOfDay) (*Appointment, error) {
	if newDate.IsZero() || !newTime.Valid() {
		return nil, fmt.Errorf("%w: date and time are required", ErrInvalidRange)
	}

	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status != StatusScheduled && appt.Status != StatusConfirmed {
		return nil, fmt.Errorf("%w: cannot reschedule a %s appointment", ErrInvalidTransition, appt.Status)
	}
	if appt.Date == newDate && appt.Time == newTime {
		return appt, nil
	}

	target, err := s.store.GetSlotByKey(ctx, SlotKey{DoctorID: appt.DoctorID, Date: newDate, Time: newTime})
	if err != nil {
		return nil, fmt.Errorf("load slot: %w", err)
	}
	if !target.IsAvailable {
		return nil, fmt.Errorf("%w: %s %s is taken or blocked", ErrSlotUnavailable, newDate, newTime)
	}

	fromDate, fromTime := appt.Date, appt.Time

	// Move first: its status guard rejects a cancel or no_show that committed
	// after the read above, and on Postgres it locks the appointment row.
	var moved *Appointment
	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		m, err := s.store.MoveAppointment(ctx, appt.ID, appt.Status, *target)
		if err != nil {
			return err
		}
		if _, err := s.store.ReleaseAppointmentSlots(ctx, appt.ID); err != nil {
			return fmt.Errorf("release previous slot: %w", err)
		}
		if _, err := s.store.ClaimSlot(ctx, target.ID, appt.ID); err != nil {
			return err
		}
		moved = m
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSlotUnavailable) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("reschedule: %w", err)
	}

	s.logEvent(ctx, &moved.ID, EventAppointmentRescheduled, map[string]any{
		"from_date": fromDate.String(),
		"from_time": fromTime.String(),
		"to_date":   moved.Date.String(),
		"to_time":   moved.Time.String(),
		"slot_id":   target.ID.String(),
	})
	s.notify(ctx, EventAppointmentRescheduled, moved)

	return moved, nil
}
