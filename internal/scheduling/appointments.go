package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

// ListAppointmentsForDoctor lists a doctor's appointments, optionally for a single date.
func (s *Service) ListAppointmentsForDoctor(ctx context.Context, doctorID uuid.UUID, date *Date, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	items, err := s.store.ListAppointmentsByDoctor(ctx, doctorID, date, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by doctor: %w", err)
	}
	return items, nil
}

func (s *Service) ListAppointmentsForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	items, err := s.store.ListAppointmentsByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return items, nil
}
