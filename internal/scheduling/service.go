package scheduling

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Options struct {
	// MaxGenerateDays caps one GenerateSlots window; zero means no cap.
	MaxGenerateDays int
	// NotifyTimeout bounds each notification attempt.
	NotifyTimeout time.Duration
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	store    Store
	notifier Notifier
	log      zerolog.Logger
	opts     Options
}

func NewService(store Store, notifier Notifier, log zerolog.Logger, opts Options) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 3 * time.Second
	}
	return &Service{
		store:    store,
		notifier: notifier,
		log:      log.With().Str("component", "scheduling").Logger(),
		opts:     opts,
	}
}

// Today is the current calendar date according to the service clock.
func (s *Service) Today() Date {
	return DateOf(s.opts.Now())
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// logEvent writes an audit row. Failures are logged and swallowed.
func (s *Service) logEvent(ctx context.Context, appointmentID *uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Msg("marshal event payload")
		data = nil
	}

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: appointmentID,
		Payload:       data,
		CreatedAt:     s.opts.Now(),
	}

	if err := s.store.InsertEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Msg("insert event log")
	}
}

// notify delivers n on a detached context so a cancelled request still
// produces its notification. Delivery errors never reach the caller.
func (s *Service) notify(ctx context.Context, event string, appt *Appointment) {
	n := Notification{
		Event:         event,
		AppointmentID: appt.ID,
		DoctorID:      appt.DoctorID,
		PatientID:     appt.PatientID,
		Date:          appt.Date,
		Time:          appt.Time,
		Status:        appt.Status,
		OccurredAt:    s.opts.Now(),
	}

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.NotifyTimeout)
	defer cancel()

	if p, err := s.store.GetPatientByID(nctx, appt.PatientID); err == nil {
		n.PatientName = p.Name
		if p.Email != nil {
			n.PatientEmail = *p.Email
		}
	} else {
		s.log.Warn().Err(err).Stringer("patient_id", appt.PatientID).Msg("load patient for notification")
	}

	if err := s.notifier.Notify(nctx, n); err != nil {
		s.log.Warn().
			Err(err).
			Str("event", event).
			Stringer("appointment_id", appt.ID).
			Msg("notification failed")
	}
}
