package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusNoShow     AppointmentStatus = "no_show"
)

type AppointmentType string

const (
	TypeInPerson     AppointmentType = "in_person"
	TypeTeleMedicine AppointmentType = "telemedicine"
	TypeFollowUp     AppointmentType = "follow_up"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case TypeInPerson, TypeTeleMedicine, TypeFollowUp:
		return true
	}
	return false
}

// PaymentStatus is carried for the billing collaborator and never interpreted here.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentWaived   PaymentStatus = "waived"
)

type Doctor struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty *string   `json:"specialty,omitempty"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Patient struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScheduleTemplate is a doctor's recurring availability for one weekday.
type ScheduleTemplate struct {
	ID                  uuid.UUID `json:"id"`
	DoctorID            uuid.UUID `json:"doctor_id"`
	Weekday             Weekday   `json:"weekday"`
	StartTime           TimeOfDay `json:"start_time"`
	EndTime             TimeOfDay `json:"end_time"`
	SlotDurationMinutes int       `json:"slot_duration_minutes"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (t ScheduleTemplate) SlotDuration() time.Duration {
	return time.Duration(t.SlotDurationMinutes) * time.Minute
}

func (t ScheduleTemplate) Validate() error {
	if !t.Weekday.Valid() {
		return fmt.Errorf("%w: weekday is required", ErrInvalidRange)
	}
	if !t.StartTime.Valid() || !t.EndTime.Valid() {
		return fmt.Errorf("%w: start_time and end_time must be within a day", ErrInvalidRange)
	}
	if t.StartTime >= t.EndTime {
		return fmt.Errorf("%w: start_time %s must be before end_time %s", ErrInvalidRange, t.StartTime, t.EndTime)
	}
	if t.SlotDurationMinutes <= 0 {
		return fmt.Errorf("%w: slot_duration_minutes must be positive", ErrInvalidRange)
	}
	return nil
}

// SchedulePatch holds the fields an update may change. Nil fields are kept.
type SchedulePatch struct {
	Weekday             *Weekday   `json:"weekday,omitempty"`
	StartTime           *TimeOfDay `json:"start_time,omitempty"`
	EndTime             *TimeOfDay `json:"end_time,omitempty"`
	SlotDurationMinutes *int       `json:"slot_duration_minutes,omitempty"`
	IsActive            *bool      `json:"is_active,omitempty"`
}

func (p SchedulePatch) apply(t *ScheduleTemplate) {
	if p.Weekday != nil {
		t.Weekday = *p.Weekday
	}
	if p.StartTime != nil {
		t.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		t.EndTime = *p.EndTime
	}
	if p.SlotDurationMinutes != nil {
		t.SlotDurationMinutes = *p.SlotDurationMinutes
	}
	if p.IsActive != nil {
		t.IsActive = *p.IsActive
	}
}

// SlotKey identifies a slot independently of its row id.
type SlotKey struct {
	DoctorID uuid.UUID
	Date     Date
	Time     TimeOfDay
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s@%sT%s", k.DoctorID, k.Date, k.Time)
}

type Slot struct {
	ID            uuid.UUID  `json:"id"`
	DoctorID      uuid.UUID  `json:"doctor_id"`
	Date          Date       `json:"date"`
	Time          TimeOfDay  `json:"time"`
	IsAvailable   bool       `json:"is_available"`
	IsBlocked     bool       `json:"is_blocked"`
	AppointmentID *uuid.UUID `json:"appointment_id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (s Slot) Key() SlotKey {
	return SlotKey{DoctorID: s.DoctorID, Date: s.Date, Time: s.Time}
}

// SlotPatch is the doctor-side edit of a slot: placing or lifting a hold.
type SlotPatch struct {
	IsBlocked *bool `json:"is_blocked,omitempty"`
}

type Appointment struct {
	ID            uuid.UUID         `json:"id"`
	PatientID     uuid.UUID         `json:"patient_id"`
	DoctorID      uuid.UUID         `json:"doctor_id"`
	Date          Date              `json:"date"`
	Time          TimeOfDay         `json:"time"`
	Type          AppointmentType   `json:"type"`
	Status        AppointmentStatus `json:"status"`
	Reason        string            `json:"reason"`
	Notes         string            `json:"notes"`
	PaymentStatus PaymentStatus     `json:"payment_status"`
	SlotID        *uuid.UUID        `json:"slot_id,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// AppointmentDraft is what a caller supplies when booking; the slot supplies the rest.
type AppointmentDraft struct {
	PatientID uuid.UUID
	Type      AppointmentType
	Reason    string
	Notes     string
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

type GenerateResult struct {
	Created int `json:"created"`
}

type CancelResult struct {
	Released bool `json:"released"`
}
