package scheduling

import (
	"context"

	"github.com/google/uuid"
)

// Transactor runs fn inside one unit of work. Repository calls made with the
// ctx passed to fn join it; an error from fn rolls everything back. Nested
// calls reuse the outer unit.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Directory gives read access to the people this core references but does not own.
type Directory interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
}

type ScheduleRepository interface {
	// CreateSchedule fails with ErrConflict when the template is active and
	// the doctor already has an active template for that weekday.
	CreateSchedule(ctx context.Context, t *ScheduleTemplate) error
	GetSchedule(ctx context.Context, id uuid.UUID) (*ScheduleTemplate, error)
	// ListSchedulesByDoctor orders by weekday, then start time.
	ListSchedulesByDoctor(ctx context.Context, doctorID uuid.UUID) ([]ScheduleTemplate, error)
	UpdateSchedule(ctx context.Context, t *ScheduleTemplate) error
	DeleteSchedule(ctx context.Context, id uuid.UUID) error
	ListDoctorsWithActiveSchedules(ctx context.Context) ([]uuid.UUID, error)
}

type SlotRepository interface {
	ListSlots(ctx context.Context, limit, offset int) ([]Slot, error)
	ListSlotsByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date Date) ([]Slot, error)
	GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error)
	GetSlotByKey(ctx context.Context, key SlotKey) (*Slot, error)

	// InsertSlots inserts every key not already present and reports how many
	// rows were actually created. Existing rows are never touched.
	InsertSlots(ctx context.Context, keys []SlotKey) (int, error)

	// ClaimSlot is the booking write: it succeeds only while the slot is
	// free and unblocked, and fails with ErrSlotUnavailable otherwise.
	ClaimSlot(ctx context.Context, slotID, appointmentID uuid.UUID) (*Slot, error)
	// ReleaseSlot frees slotID if, and only if, appointmentID still holds it.
	ReleaseSlot(ctx context.Context, slotID, appointmentID uuid.UUID) (bool, error)
	// ReleaseAppointmentSlots frees every slot held by appointmentID.
	ReleaseAppointmentSlots(ctx context.Context, appointmentID uuid.UUID) (int, error)

	// SetSlotBlocked places or lifts a doctor hold. A booked slot cannot be
	// blocked (ErrSlotUnavailable).
	SetSlotBlocked(ctx context.Context, id uuid.UUID, blocked bool) (*Slot, error)
	// DeleteSlot refuses to drop a booked slot (ErrConflict).
	DeleteSlot(ctx context.Context, id uuid.UUID) error
}

type AppointmentRepository interface {
	CreateAppointment(ctx context.Context, a *Appointment) error
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// UpdateAppointmentStatus moves id from one status to another. It fails
	// with ErrInvalidTransition when the stored status is no longer from.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)
	// MoveAppointment points id at a different slot. Like
	// UpdateAppointmentStatus it fails with ErrInvalidTransition when the
	// stored status is no longer from.
	MoveAppointment(ctx context.Context, id uuid.UUID, from AppointmentStatus, slot Slot) (*Appointment, error)

	ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, date *Date, limit, offset int) ([]Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)
}

type EventRepository interface {
	InsertEvent(ctx context.Context, ev EventLog) error
}

// Store is everything the service needs from persistence.
type Store interface {
	Transactor
	Directory
	ScheduleRepository
	SlotRepository
	AppointmentRepository
	EventRepository
}
