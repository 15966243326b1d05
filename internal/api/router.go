package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	Service  SchedulingService
	Postgres Check
	Redis    Check
	Logger   zerolog.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)

	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	h := NewHandler(cfg.Service)

	r.Route("/doctors/{doctorID}", func(r chi.Router) {
		r.Post("/schedules", h.createSchedule)
		r.Get("/schedules", h.listSchedules)
		r.Post("/slots/generate", h.generateSlots)
		r.Get("/slots", h.listDoctorSlots)
		r.Get("/appointments", h.listDoctorAppointments)
	})
	r.Get("/patients/{patientID}/appointments", h.listPatientAppointments)

	r.Route("/schedules/{id}", func(r chi.Router) {
		r.Get("/", h.getSchedule)
		r.Patch("/", h.updateSchedule)
		r.Delete("/", h.deleteSchedule)
	})

	r.Get("/slots", h.listSlots)
	r.Route("/slots/{id}", func(r chi.Router) {
		r.Get("/", h.getSlot)
		r.Patch("/", h.updateSlot)
		r.Delete("/", h.deleteSlot)
	})

	r.Post("/appointments", h.bookAppointment)
	r.Route("/appointments/{id}", func(r chi.Router) {
		r.Get("/", h.getAppointment)
		r.Patch("/status", h.updateAppointmentStatus)
		r.Post("/cancel", h.cancelAppointment)
		r.Post("/reschedule", h.rescheduleAppointment)
	})

	return r
}
