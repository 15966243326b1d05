package scheduling_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/hospital-scheduling/internal/scheduling"
	"github.com/hackgods/hospital-scheduling/internal/scheduling/schedulingtest"
)

// 2025-07-21 is a Monday.
var (
	monday   = scheduling.NewDate(2025, time.July, 21)
	tuesday  = scheduling.NewDate(2025, time.July, 22)
	fixedNow = time.Date(2025, time.July, 20, 8, 0, 0, 0, time.UTC)
)

func tod(s string) scheduling.TimeOfDay {
	t, err := scheduling.ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []scheduling.Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n scheduling.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recordingNotifier) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sent))
	for _, n := range r.sent {
		out = append(out, n.Event)
	}
	return out
}

type fixture struct {
	store    *schedulingtest.Store
	svc      *scheduling.Service
	notifier *recordingNotifier
	doctor   uuid.UUID
	patient  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := schedulingtest.NewStore()
	notifier := &recordingNotifier{}
	svc := scheduling.NewService(store, notifier, zerolog.Nop(), scheduling.Options{
		MaxGenerateDays: 366,
		NotifyTimeout:   time.Second,
		Now:             func() time.Time { return fixedNow },
	})

	return &fixture{
		store:    store,
		svc:      svc,
		notifier: notifier,
		doctor:   store.AddDoctor("Dr. Grey"),
		patient:  store.AddPatient("Ada Lovelace", "ada@example.com"),
	}
}

// addTemplate stores an active template for the fixture doctor.
func (f *fixture) addTemplate(t *testing.T, day scheduling.Weekday, start, end string, minutes int) *scheduling.ScheduleTemplate {
	t.Helper()

	tpl := &scheduling.ScheduleTemplate{
		DoctorID:            f.doctor,
		Weekday:             day,
		StartTime:           tod(start),
		EndTime:             tod(end),
		SlotDurationMinutes: minutes,
		IsActive:            true,
	}
	require.NoError(t, f.svc.CreateSchedule(context.Background(), tpl))
	return tpl
}

// mondayClinic is the reference setup: Monday 09:00-11:00 in 30 minute
// slots, materialized for 2025-07-21.
func (f *fixture) mondayClinic(t *testing.T) {
	t.Helper()

	f.addTemplate(t, scheduling.Monday, "09:00:00", "11:00:00", 30)
	res, err := f.svc.GenerateSlots(context.Background(), f.doctor, monday, monday)
	require.NoError(t, err)
	require.Equal(t, 4, res.Created)
}

func (f *fixture) book(at string) (*scheduling.Appointment, error) {
	return f.svc.BookAppointment(context.Background(), f.doctor, monday, tod(at), scheduling.AppointmentDraft{
		PatientID: f.patient,
		Reason:    "checkup",
	})
}

func (f *fixture) slotAt(t *testing.T, date scheduling.Date, at string) *scheduling.Slot {
	t.Helper()

	slots, err := f.svc.ListSlotsForDoctorAndDate(context.Background(), f.doctor, date)
	require.NoError(t, err)
	for i := range slots {
		if slots[i].Time == tod(at) {
			return &slots[i]
		}
	}
	t.Fatalf("no slot at %s %s", date, at)
	return nil
}

func TestService_EventLogFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t)
	f.mondayClinic(t)
	f.store.FailEvents = true

	appt, err := f.book("09:00:00")
	require.NoError(t, err)
	require.Equal(t, scheduling.StatusScheduled, appt.Status)
}

func TestService_NotifierFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t)
	f.mondayClinic(t)
	f.notifier.err = errors.New("smtp down")

	appt, err := f.book("09:30:00")
	require.NoError(t, err)
	require.Equal(t, []string{scheduling.EventAppointmentBooked}, f.notifier.events())

	slot := f.slotAt(t, monday, "09:30:00")
	require.False(t, slot.IsAvailable)
	require.Equal(t, appt.ID, *slot.AppointmentID)
}

func TestService_NotificationCarriesPatientContact(t *testing.T) {
	f := newFixture(t)
	f.mondayClinic(t)

	_, err := f.book("10:30:00")
	require.NoError(t, err)

	require.Len(t, f.notifier.sent, 1)
	n := f.notifier.sent[0]
	require.Equal(t, "Ada Lovelace", n.PatientName)
	require.Equal(t, "ada@example.com", n.PatientEmail)
	require.Equal(t, "2025-07-21", n.Date.String())
	require.Equal(t, "10:30:00", n.Time.String())
}
