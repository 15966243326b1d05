package scheduling_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/hospital-scheduling/internal/scheduling"
)

func TestUpdateSlot_BlockAndUnblock(t *testing.T) {
	f := newFixture(t)
	f.mondayClinic(t)
	ctx := context.Background()

	slot := f.slotAt(t, monday, "09:00:00")
	blocked := true
	got, err := f.svc.UpdateSlot(ctx, slot.ID, scheduling.SlotPatch{IsBlocked: &blocked})
	require.NoError(t, err)
	assert.True(t, got.IsBlocked)
	assert.False(t, got.IsAvailable)

	_, err = f.book("09:00:00")
	assert.ErrorIs(t, err, scheduling.ErrSlotUnavailable)

	blocked = false
	got, err = f.svc.UpdateSlot(ctx, slot.ID, scheduling.SlotPatch{IsBlocked: &blocked})
	require.NoError(t, err)
	assert.False(t, got.IsBlocked)
	assert.True(t, got.IsAvailable)

	_, err = f.book("09:00:00")
	assert.NoError(t, err)
}

func TestUpdateSlot_CannotBlockBookedSlot(t *testing.T) {
	f := newFixture(t)
	f.mondayClinic(t)
	ctx := context.Background()

	_, err := f.book("09:30:00")
	require.NoError(t, err)
	slot := f.slotAt(t, monday, "09:30:00")

	blocked := true
	_, err = f.svc.UpdateSlot(ctx, slot.ID, scheduling.SlotPatch{IsBlocked: &blocked})
	assert.ErrorIs(t, err, scheduling.ErrSlotUnavailable)

	// An empty patch is a read.
	same, err := f.svc.UpdateSlot(ctx, slot.ID, scheduling.SlotPatch{})
	require.NoError(t, err)
	assert.Equal(t, slot.ID, same.ID)
	assert.False(t, same.IsBlocked)

	_, err = f.svc.UpdateSlot(ctx, uuid.New(), scheduling.SlotPatch{IsBlocked: &blocked})
	assert.ErrorIs(t, err, scheduling.ErrSlotNotFound)
}

func TestDeleteSlot(t *testing.T) {
	f := newFixture(t)
	f.mondayClinic(t)
	ctx := context.Background()

	_, err := f.book("10:00:00")
	require.NoError(t, err)

	booked := f.slotAt(t, monday, "10:00:00")
	assert.ErrorIs(t, f.svc.DeleteSlot(ctx, booked.ID), scheduling.ErrConflict)

	free := f.slotAt(t, monday, "10:30:00")
	require.NoError(t, f.svc.DeleteSlot(ctx, free.ID))

	_, err = f.svc.GetSlot(ctx, free.ID)
	assert.ErrorIs(t, err, scheduling.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteSlot(ctx, free.ID), scheduling.ErrNotFound)

	// Regenerating restores the removed slot only.
	res, err := f.svc.GenerateSlots(ctx, f.doctor, monday, monday)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
}

func TestListSlots_Pagination(t *testing.T) {
	f := newFixture(t)
	f.mondayClinic(t)
	ctx := context.Background()

	page, err := f.svc.ListSlots(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "09:00:00", page[0].Time.String())

	rest, err := f.svc.ListSlots(ctx, 3, 3)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "10:30:00", rest[0].Time.String())

	all, err := f.svc.ListSlots(ctx, 0, -5)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestListSlotsForDoctorAndDate_RequiresDate(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ListSlotsForDoctorAndDate(context.Background(), f.doctor, scheduling.Date{})
	assert.ErrorIs(t, err, scheduling.ErrInvalidRange)
}
