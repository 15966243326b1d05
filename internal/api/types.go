package api

import (
	"github.com/google/uuid"

	"github.com/hackgods/hospital-scheduling/internal/scheduling"
)

type CreateScheduleRequest struct {
	Weekday             scheduling.Weekday   `json:"weekday"`
	StartTime           scheduling.TimeOfDay `json:"start_time"`
	EndTime             scheduling.TimeOfDay `json:"end_time"`
	SlotDurationMinutes int                  `json:"slot_duration_minutes"`
	IsActive            *bool                `json:"is_active,omitempty"` // defaults to true
}

type GenerateSlotsRequest struct {
	StartDate scheduling.Date `json:"start_date"`
	EndDate   scheduling.Date `json:"end_date"`
}

type BookAppointmentRequest struct {
	DoctorID  string                     `json:"doctor_id"`
	PatientID string                     `json:"patient_id"`
	Date      scheduling.Date            `json:"date"`
	Time      scheduling.TimeOfDay       `json:"time"`
	Type      scheduling.AppointmentType `json:"type,omitempty"`
	Reason    string                     `json:"reason,omitempty"`
	Notes     string                     `json:"notes,omitempty"`
}

type UpdateStatusRequest struct {
	Status scheduling.AppointmentStatus `json:"status"`
}

type RescheduleRequest struct {
	Date scheduling.Date      `json:"date"`
	Time scheduling.TimeOfDay `json:"time"`
}

type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

type GenerateSlotsResponse struct {
	DoctorID uuid.UUID       `json:"doctor_id"`
	Start    scheduling.Date `json:"start_date"`
	End      scheduling.Date `json:"end_date"`
	Created  int             `json:"created"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
