package scheduling_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/hospital-scheduling/internal/scheduling"
)

func keyTimes(keys []scheduling.SlotKey) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.Date.String()+" "+k.Time.String())
	}
	return out
}

func TestExpandSlots_DropsTrailingPartialSlot(t *testing.T) {
	doctor := uuid.New()
	tpl := scheduling.ScheduleTemplate{
		DoctorID:            doctor,
		Weekday:             scheduling.Monday,
		StartTime:           tod("09:00:00"),
		EndTime:             tod("09:50:00"),
		SlotDurationMinutes: 30,
		IsActive:            true,
	}

	keys := scheduling.ExpandSlots([]scheduling.ScheduleTemplate{tpl}, monday, monday)
	assert.Equal(t, []string{"2025-07-21 09:00:00"}, keyTimes(keys))
}

func TestExpandSlots_ExactFitKeepsLastSlot(t *testing.T) {
	tpl := scheduling.ScheduleTemplate{
		DoctorID:            uuid.New(),
		Weekday:             scheduling.Monday,
		StartTime:           tod("09:00:00"),
		EndTime:             tod("10:00:00"),
		SlotDurationMinutes: 20,
		IsActive:            true,
	}

	keys := scheduling.ExpandSlots([]scheduling.ScheduleTemplate{tpl}, monday, monday)
	assert.Equal(t, []string{
		"2025-07-21 09:00:00",
		"2025-07-21 09:20:00",
		"2025-07-21 09:40:00",
	}, keyTimes(keys))
}

func TestExpandSlots_OnlyActiveTemplatesOnMatchingDays(t *testing.T) {
	doctor := uuid.New()
	templates := []scheduling.ScheduleTemplate{
		{DoctorID: doctor, Weekday: scheduling.Monday, StartTime: tod("09:00:00"), EndTime: tod("10:00:00"), SlotDurationMinutes: 60, IsActive: true},
		{DoctorID: doctor, Weekday: scheduling.Wednesday, StartTime: tod("14:00:00"), EndTime: tod("15:00:00"), SlotDurationMinutes: 60, IsActive: true},
		{DoctorID: doctor, Weekday: scheduling.Tuesday, StartTime: tod("09:00:00"), EndTime: tod("10:00:00"), SlotDurationMinutes: 60, IsActive: false},
	}

	// Monday 2025-07-21 through Monday 2025-07-28.
	keys := scheduling.ExpandSlots(templates, monday, monday.AddDays(7))
	assert.Equal(t, []string{
		"2025-07-21 09:00:00",
		"2025-07-23 14:00:00",
		"2025-07-28 09:00:00",
	}, keyTimes(keys))
}

func TestExpandSlots_EmptyWhenRangeInverted(t *testing.T) {
	tpl := scheduling.ScheduleTemplate{
		DoctorID: uuid.New(), Weekday: scheduling.Monday,
		StartTime: tod("09:00:00"), EndTime: tod("10:00:00"), SlotDurationMinutes: 30, IsActive: true,
	}
	assert.Empty(t, scheduling.ExpandSlots([]scheduling.ScheduleTemplate{tpl}, tuesday, monday))
}

func TestGenerateSlots_MondayClinic(t *testing.T) {
	f := newFixture(t)
	f.addTemplate(t, scheduling.Monday, "09:00:00", "11:00:00", 30)

	res, err := f.svc.GenerateSlots(context.Background(), f.doctor, monday, monday)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Created)

	slots, err := f.svc.ListSlotsForDoctorAndDate(context.Background(), f.doctor, monday)
	require.NoError(t, err)
	require.Len(t, slots, 4)

	var times []string
	for _, s := range slots {
		assert.True(t, s.IsAvailable)
		assert.False(t, s.IsBlocked)
		assert.Nil(t, s.AppointmentID)
		times = append(times, s.Time.String())
	}
	assert.Equal(t, []string{"09:00:00", "09:30:00", "10:00:00", "10:30:00"}, times)
}

func TestGenerateSlots_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.addTemplate(t, scheduling.Monday, "09:00:00", "11:00:00", 30)
	ctx := context.Background()

	first, err := f.svc.GenerateSlots(ctx, f.doctor, monday, monday.AddDays(13))
	require.NoError(t, err)
	assert.Equal(t, 8, first.Created)

	second, err := f.svc.GenerateSlots(ctx, f.doctor, monday, monday.AddDays(13))
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 8, f.store.SlotCount())

	// A wider window only adds the missing week.
	third, err := f.svc.GenerateSlots(ctx, f.doctor, monday, monday.AddDays(20))
	require.NoError(t, err)
	assert.Equal(t, 4, third.Created)
}

func TestGenerateSlots_KeepsBookedSlots(t *testing.T) {
	f := newFixture(t)
	f.mondayClinic(t)

	appt, err := f.book("10:00:00")
	require.NoError(t, err)

	res, err := f.svc.GenerateSlots(context.Background(), f.doctor, monday, monday)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)

	slot := f.slotAt(t, monday, "10:00:00")
	require.NotNil(t, slot.AppointmentID)
	assert.Equal(t, appt.ID, *slot.AppointmentID)
}

func TestGenerateSlots_InvalidRange(t *testing.T) {
	f := newFixture(t)
	f.addTemplate(t, scheduling.Monday, "09:00:00", "11:00:00", 30)
	ctx := context.Background()

	_, err := f.svc.GenerateSlots(ctx, f.doctor, tuesday, monday)
	assert.ErrorIs(t, err, scheduling.ErrInvalidRange)

	_, err = f.svc.GenerateSlots(ctx, f.doctor, scheduling.Date{}, monday)
	assert.ErrorIs(t, err, scheduling.ErrInvalidRange)

	_, err = f.svc.GenerateSlots(ctx, f.doctor, monday, monday.AddDays(366))
	assert.ErrorIs(t, err, scheduling.ErrInvalidRange)

	assert.Equal(t, 0, f.store.SlotCount())
}

func TestGenerateSlots_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GenerateSlots(ctx, uuid.New(), monday, monday)
	assert.ErrorIs(t, err, scheduling.ErrDoctorNotFound)

	// Known doctor without an active template.
	_, err = f.svc.GenerateSlots(ctx, f.doctor, monday, monday)
	assert.ErrorIs(t, err, scheduling.ErrNotFound)
	assert.ErrorIs(t, err, scheduling.ErrScheduleNotFound)
}

func TestGenerateSlots_WritesEvent(t *testing.T) {
	f := newFixture(t)
	f.mondayClinic(t)

	events := f.store.Events()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, scheduling.EventSlotsGenerated, last.EventType)
	assert.Nil(t, last.AppointmentID)
	assert.Contains(t, string(last.Payload), `"created":4`)
}

func TestMaterializeHorizon(t *testing.T) {
	f := newFixture(t)
	f.addTemplate(t, scheduling.Monday, "09:00:00", "11:00:00", 30)

	other := f.store.AddDoctor("Dr. House")
	require.NoError(t, f.svc.CreateSchedule(context.Background(), &scheduling.ScheduleTemplate{
		DoctorID:            other,
		Weekday:             scheduling.Tuesday,
		StartTime:           tod("14:00:00"),
		EndTime:             tod("15:00:00"),
		SlotDurationMinutes: 15,
		IsActive:            true,
	}))

	res, err := f.svc.MaterializeHorizon(context.Background(), monday, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Doctors)
	assert.Equal(t, 8, res.Created)
	assert.Equal(t, 0, res.Failed)

	again, err := f.svc.MaterializeHorizon(context.Background(), monday, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Created)

	_, err = f.svc.MaterializeHorizon(context.Background(), monday, 0)
	assert.ErrorIs(t, err, scheduling.ErrInvalidRange)
}
