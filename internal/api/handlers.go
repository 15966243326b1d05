package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-scheduling/internal/scheduling"
)

// SchedulingService is the part of scheduling.Service the HTTP layer drives.
type SchedulingService interface {
	CreateSchedule(ctx context.Context, t *scheduling.ScheduleTemplate) error
	ListSchedulesForDoctor(ctx context.Context, doctorID uuid.UUID) ([]scheduling.ScheduleTemplate, error)
	GetSchedule(ctx context.Context, id uuid.UUID) (*scheduling.ScheduleTemplate, error)
	UpdateSchedule(ctx context.Context, id uuid.UUID, patch scheduling.SchedulePatch) (*scheduling.ScheduleTemplate, error)
	DeleteSchedule(ctx context.Context, id uuid.UUID) error

	GenerateSlots(ctx context.Context, doctorID uuid.UUID, start, end scheduling.Date) (scheduling.GenerateResult, error)
	ListSlots(ctx context.Context, limit, offset int) ([]scheduling.Slot, error)
	ListSlotsForDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date scheduling.Date) ([]scheduling.Slot, error)
	GetSlot(ctx context.Context, id uuid.UUID) (*scheduling.Slot, error)
	UpdateSlot(ctx context.Context, id uuid.UUID, patch scheduling.SlotPatch) (*scheduling.Slot, error)
	DeleteSlot(ctx context.Context, id uuid.UUID) error

	BookAppointment(ctx context.Context, doctorID uuid.UUID, date scheduling.Date, at scheduling.TimeOfDay, draft scheduling.AppointmentDraft) (*scheduling.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
	ListAppointmentsForDoctor(ctx context.Context, doctorID uuid.UUID, date *scheduling.Date, limit, offset int) ([]scheduling.Appointment, error)
	ListAppointmentsForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]scheduling.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, to scheduling.AppointmentStatus) (*scheduling.Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID) (scheduling.CancelResult, error)
	RescheduleAppointment(ctx context.Context, id uuid.UUID, date scheduling.Date, at scheduling.TimeOfDay) (*scheduling.Appointment, error)
}

var _ SchedulingService = (*scheduling.Service)(nil)

var errNoCheck = errors.New("no health check configured")

type Handler struct {
	svc SchedulingService
}

func NewHandler(svc SchedulingService) *Handler {
	return &Handler{svc: svc}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return false
	}
	return true
}

// pathUUID parses the named chi URL parameter, answering 400 on failure.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func pageParams(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	q := r.URL.Query()
	for name, dst := range map[string]*int{"limit": &limit, "offset": &offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be an integer")
			return 0, 0, false
		}
		*dst = v
	}
	return limit, offset, true
}

// queryDate reads an optional YYYY-MM-DD query parameter.
func queryDate(w http.ResponseWriter, r *http.Request, name string) (*scheduling.Date, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	d, err := scheduling.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, err.Error())
		return nil, false
	}
	return &d, true
}

// writeServiceError maps the scheduling error taxonomy onto HTTP. Anything
// unrecognised is logged and reported without details.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, scheduling.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, scheduling.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, scheduling.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, scheduling.ErrScheduleNotFound):
		writeError(w, http.StatusNotFound, "schedule_not_found", err.Error())
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, scheduling.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, scheduling.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, scheduling.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, scheduling.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, scheduling.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range", err.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}
