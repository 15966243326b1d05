package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventAppointmentBooked        = "APPOINTMENT_BOOKED"
	EventAppointmentStatusChanged = "APPOINTMENT_STATUS_CHANGED"
	EventAppointmentCancelled     = "APPOINTMENT_CANCELLED"
	EventAppointmentRescheduled   = "APPOINTMENT_RESCHEDULED"
	EventSlotsGenerated           = "SLOTS_GENERATED"
)

// Notification describes an appointment event for patient-facing delivery.
type Notification struct {
	Event         string            `json:"event"`
	AppointmentID uuid.UUID         `json:"appointment_id"`
	DoctorID      uuid.UUID         `json:"doctor_id"`
	PatientID     uuid.UUID         `json:"patient_id"`
	PatientName   string            `json:"patient_name,omitempty"`
	PatientEmail  string            `json:"patient_email,omitempty"`
	Date          Date              `json:"date"`
	Time          TimeOfDay         `json:"time"`
	Status        AppointmentStatus `json:"status"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// Notifier delivers notifications. Errors are logged by the caller and never
// undo the operation that produced the notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Notification) error { return nil }
