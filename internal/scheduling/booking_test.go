package scheduling_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/hospital-scheduling/internal/scheduling"
	"github.com/hackgods/hospital-scheduling/internal/scheduling/schedulingtest"
)

func TestBookAppointment_SecondBookingOfSameSlotFails(t *testing.T) {
	f := newFixture(t)
	f.mondayClinic(t)

	appt, err := f.book("10:00:00")
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusScheduled, appt.Status)
	assert.Equal(t, scheduling.TypeInPerson, appt.Type)
	assert.Equal(t, scheduling.PaymentPending, appt.PaymentStatus)
	assert.Equal(t, f.doctor, appt.DoctorID)

	slot := f.slotAt(t, monday, "10:00:00")
	assert.False(t, slot.IsAvailable)
	require.NotNil(t, slot.AppointmentID)
	assert.Equal(t, appt.ID, *slot.AppointmentID)
	require.NotNil(t, appt.SlotID)
	assert.Equal(t, slot.ID, *appt.SlotID)

	_, err = f.book("10:00:00")
	assert.ErrorIs(t, err, scheduling.ErrSlotUnavailable)
}

func TestBookAppointment_MissingSlotIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.mondayClinic(t)

	_, err := f.book("11:00:00")
	assert.ErrorIs(t, err, scheduling.ErrSlotNotFound)
	assert.False(t, errors.Is(err, scheduling.ErrSlotUnavailable))
}

func TestBookAppointment_UnknownParties(t *testing.T) {
	f := newFixture(t)
	f.mondayClinic(t)
	ctx := context.Background()

	_, err := f.svc.BookAppointment(ctx, f.doctor, monday, tod("09:00:00"), scheduling.AppointmentDraft{PatientID: uuid.New()})
	assert.ErrorIs(t, err, scheduling.ErrPatientNotFound)

	_, err = f.svc.BookAppointment(ctx, uuid.New(), monday, tod("09:00:00"), scheduling.AppointmentDraft{PatientID: f.patient})
	assert.ErrorIs(t, err, scheduling.ErrDoctorNotFound)

	_, err = f.svc.BookAppointment(ctx, f.doctor, monday, tod("09:00:00"), scheduling.AppointmentDraft{
		PatientID: f.patient,
		Type:      "house_call",
	})
	assert.ErrorIs(t, err, scheduling.ErrInvalidRange)
}

func TestBookAppointment_ConcurrentRequestsProduceOneBooking(t *testing.T) {
	f := newFixture(t)
	f.mondayClinic(t)

	const callers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		others    []error
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.book("10:00:00")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			others = append(others, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	require.Len(t, others, callers-1)
	for _, err := range others {
		assert.ErrorIs(t, err, scheduling.ErrSlotUnavailable)
	}

	// Losers must not leave orphan appointments behind.
	appts, err := f.svc.ListAppointmentsForDoctor(context.Background(), f.doctor, &monday, 100, 0)
	require.NoError(t, err)
	assert.Len(t, appts, 1)
}

func TestBookAppointment_BookCancelBook(t *testing.T) {
	f := newFixture(t)
	f.mondayClinic(t)
	ctx := context.Background()

	first, err := f.book("09:30:00")
	require.NoError(t, err)

	res, err := f.svc.CancelAppointment(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, res.Released)

	slot := f.slotAt(t, monday, "09:30:00")
	assert.True(t, slot.IsAvailable)
	assert.Nil(t, slot.AppointmentID)

	second, err := f.book("09:30:00")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	slot = f.slotAt(t, monday, "09:30:00")
	require.NotNil(t, slot.AppointmentID)
	assert.Equal(t, second.ID, *slot.AppointmentID)
}

func TestReleaseSlot(t *testing.T) {
	f := newFixture(t)
	f.mondayClinic(t)
	ctx := context.Background()

	released, err := f.svc.ReleaseSlot(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, released)

	appt, err := f.book("09:00:00")
	require.NoError(t, err)

	released, err = f.svc.ReleaseSlot(ctx, appt.ID)
	require.NoError(t, err)
	assert.True(t, released)
	assert.True(t, f.slotAt(t, monday, "09:00:00").IsAvailable)

	released, err = f.svc.ReleaseSlot(ctx, appt.ID)
	require.NoError(t, err)
	assert.False(t, released)
}

func TestRescheduleAppointment_MovesClaim(t *testing.T) {
	f := newFixture(t)
	f.mondayClinic(t)
	ctx := context.Background()

	appt, err := f.book("09:00:00")
	require.NoError(t, err)

	moved, err := f.svc.RescheduleAppointment(ctx, appt.ID, monday, tod("10:30:00"))
	require.NoError(t, err)
	assert.Equal(t, appt.ID, moved.ID)
	assert.Equal(t, "10:30:00", moved.Time.String())

	old := f.slotAt(t, monday, "09:00:00")
	assert.True(t, old.IsAvailable)
	assert.Nil(t, old.AppointmentID)

	target := f.slotAt(t, monday, "10:30:00")
	require.NotNil(t, target.AppointmentID)
	assert.Equal(t, appt.ID, *target.AppointmentID)
	require.NotNil(t, moved.SlotID)
	assert.Equal(t, target.ID, *moved.SlotID)

	assert.Contains(t, f.notifier.events(), scheduling.EventAppointmentRescheduled)
}

func TestRescheduleAppointment_FailureKeepsOriginal(t *testing.T) {
	f := newFixture(t)
	f.mondayClinic(t)
	ctx := context.Background()

	mine, err := f.book("09:00:00")
	require.NoError(t, err)
	_, err = f.book("10:00:00")
	require.NoError(t, err)

	_, err = f.svc.RescheduleAppointment(ctx, mine.ID, monday, tod("10:00:00"))
	assert.ErrorIs(t, err, scheduling.ErrSlotUnavailable)

	_, err = f.svc.RescheduleAppointment(ctx, mine.ID, tuesday, tod("09:00:00"))
	assert.ErrorIs(t, err, scheduling.ErrSlotNotFound)

	stored, err := f.svc.GetAppointment(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "09:00:00", stored.Time.String())

	slot := f.slotAt(t, monday, "09:00:00")
	require.NotNil(t, slot.AppointmentID)
	assert.Equal(t, mine.ID, *slot.AppointmentID)
}

func TestRescheduleAppointment_OnlyFromActiveBookings(t *testing.T) {
	f := newFixture(t)
	f.mondayClinic(t)
	ctx := context.Background()

	appt, err := f.book("09:00:00")
	require.NoError(t, err)
	_, err = f.svc.CancelAppointment(ctx, appt.ID)
	require.NoError(t, err)

	_, err = f.svc.RescheduleAppointment(ctx, appt.ID, monday, tod("10:30:00"))
	assert.ErrorIs(t, err, scheduling.ErrInvalidTransition)
	assert.True(t, f.slotAt(t, monday, "10:30:00").IsAvailable)
}

func TestRescheduleAppointment_SameSlotIsNoop(t *testing.T) {
	f := newFixture(t)
	f.mondayClinic(t)

	appt, err := f.book("09:00:00")
	require.NoError(t, err)

	same, err := f.svc.RescheduleAppointment(context.Background(), appt.ID, monday, tod("09:00:00"))
	require.NoError(t, err)
	assert.Equal(t, appt.ID, same.ID)

	slot := f.slotAt(t, monday, "09:00:00")
	require.NotNil(t, slot.AppointmentID)
	assert.Equal(t, appt.ID, *slot.AppointmentID)
}

// interleavingStore runs next once, right after the first slot lookup by
// key, to land a competing write between a read and the transaction that
// acts on it.
type interleavingStore struct {
	*schedulingtest.Store
	next func()
}

func (s *interleavingStore) GetSlotByKey(ctx context.Context, key scheduling.SlotKey) (*scheduling.Slot, error) {
	sl, err := s.Store.GetSlotByKey(ctx, key)
	if next := s.next; next != nil {
		s.next = nil
		next()
	}
	return sl, err
}

func (f *fixture) interleaved(next func()) *scheduling.Service {
	return scheduling.NewService(&interleavingStore{Store: f.store, next: next}, f.notifier, zerolog.Nop(), scheduling.Options{
		Now: func() time.Time { return fixedNow },
	})
}

func TestRescheduleAppointment_CancelledMeanwhileKeepsTargetFree(t *testing.T) {
	f := newFixture(t)
	f.mondayClinic(t)
	ctx := context.Background()

	appt, err := f.book("09:00:00")
	require.NoError(t, err)

	svc := f.interleaved(func() {
		_, err := f.svc.CancelAppointment(ctx, appt.ID)
		require.NoError(t, err)
	})

	_, err = svc.RescheduleAppointment(ctx, appt.ID, monday, tod("10:00:00"))
	assert.ErrorIs(t, err, scheduling.ErrInvalidTransition)

	target := f.slotAt(t, monday, "10:00:00")
	assert.True(t, target.IsAvailable)
	assert.Nil(t, target.AppointmentID)
	assert.True(t, f.slotAt(t, monday, "09:00:00").IsAvailable)

	stored, err := f.svc.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusCancelled, stored.Status)
	assert.Equal(t, "09:00:00", stored.Time.String())
}

func TestRescheduleAppointment_TargetTakenMeanwhileRestoresOriginal(t *testing.T) {
	f := newFixture(t)
	f.mondayClinic(t)
	ctx := context.Background()

	mine, err := f.book("09:00:00")
	require.NoError(t, err)

	var theirs *scheduling.Appointment
	svc := f.interleaved(func() {
		var err error
		theirs, err = f.book("10:00:00")
		require.NoError(t, err)
	})

	_, err = svc.RescheduleAppointment(ctx, mine.ID, monday, tod("10:00:00"))
	assert.ErrorIs(t, err, scheduling.ErrSlotUnavailable)

	original := f.slotAt(t, monday, "09:00:00")
	require.NotNil(t, original.AppointmentID)
	assert.Equal(t, mine.ID, *original.AppointmentID)
	assert.False(t, original.IsAvailable)

	target := f.slotAt(t, monday, "10:00:00")
	require.NotNil(t, target.AppointmentID)
	assert.Equal(t, theirs.ID, *target.AppointmentID)

	stored, err := f.svc.GetAppointment(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "09:00:00", stored.Time.String())
	require.NotNil(t, stored.SlotID)
	assert.Equal(t, original.ID, *stored.SlotID)
}
