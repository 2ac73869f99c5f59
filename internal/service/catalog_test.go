package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/workspace-reservation/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestCreateResourceDefaultsAndValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	room, err := e.Catalog.Create(ctx, ResourceInput{ResourceNumber: "R-1", Name: "Room", Type: model.ResourceRoom, Capacity: 8})
	require.NoError(t, err)
	require.NotNil(t, room.BookingType)
	assert.Equal(t, model.BookingExclusive, *room.BookingType)
	assert.Equal(t, 1, room.ConcurrencyLimit())
	assert.True(t, room.Active)

	desk, err := e.Catalog.Create(ctx, ResourceInput{ResourceNumber: "D-1", Name: "Desk", Type: model.ResourceDesk, Capacity: 4})
	require.NoError(t, err)
	require.NotNil(t, desk.DeskMode)
	assert.Equal(t, model.DeskHotDesk, *desk.DeskMode)
	assert.Equal(t, 1, desk.Capacity)

	park, err := e.Catalog.Create(ctx, ResourceInput{ResourceNumber: "P-1", Name: "Lot", Type: model.ResourceParking, Capacity: 20})
	require.NoError(t, err)
	assert.Nil(t, park.BookingType)
	assert.Nil(t, park.DeskMode)
	assert.Equal(t, 20, park.ConcurrencyLimit())

	cases := map[string]ResourceInput{
		"parking on a floor": {ResourceNumber: "P-2", Name: "Lot", Type: model.ResourceParking, Capacity: 1, FloorID: ptr(uint64(3))},
		"zero capacity":      {ResourceNumber: "R-2", Name: "Room", Type: model.ResourceRoom},
		"unknown type":       {ResourceNumber: "X-1", Name: "X", Type: "LOCKER", Capacity: 1},
		"missing name":       {ResourceNumber: "R-3", Type: model.ResourceRoom, Capacity: 1},
		"bad booking type":   {ResourceNumber: "R-4", Name: "Room", Type: model.ResourceRoom, Capacity: 1, BookingType: ptr(model.BookingType("OPEN"))},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.Catalog.Create(ctx, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestUpdateKeepsPolicy(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.room(t, model.BookingShared, 4)

	got, err := e.Catalog.Update(ctx, r.ID, ResourceInput{
		ResourceNumber: r.ResourceNumber, Name: "Renamed", Capacity: 6,
		BookingType: ptr(model.BookingExclusive), Active: ptr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 6, got.ConcurrencyLimit())
	assert.Equal(t, model.BookingShared, *got.BookingType)

	_, err = e.Catalog.Update(ctx, 777, ResourceInput{ResourceNumber: "x", Name: "x", Capacity: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChangeRoomBookingTypeAffectsLaterChecksOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.room(t, model.BookingShared, 2)
	_, err := e.Ledger.CreateBooking(ctx, r.ID, 1, at(9, 0), at(10, 0))
	require.NoError(t, err)
	_, err = e.Ledger.CreateBooking(ctx, r.ID, 2, at(9, 0), at(10, 0))
	require.NoError(t, err)

	_, err = e.Catalog.ChangeRoomBookingType(ctx, r.ID, model.BookingExclusive)
	require.NoError(t, err)
	list, err := e.Ledger.List(ctx, model.BookingFilter{ResourceID: &r.ID})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = e.Ledger.CreateBooking(ctx, r.ID, 3, at(11, 0), at(12, 0))
	require.NoError(t, err)
	_, err = e.Ledger.CreateBooking(ctx, r.ID, 4, at(11, 30), at(12, 30))
	assert.ErrorIs(t, err, ErrConflict)

	d := e.desk(t, model.DeskHotDesk)
	_, err = e.Catalog.ChangeRoomBookingType(ctx, d.ID, model.BookingShared)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 1, e.events.count(model.EventResourceModeChange))
}

func TestDeskModeGuardCountsFutureAssignments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	d := e.desk(t, model.DeskAssigned)

	_, err := e.Assignments.Create(ctx, d.ID, 5, at(0, 0).Add(48*time.Hour), nil)
	require.NoError(t, err)
	_, err = e.Catalog.ChangeDeskMode(ctx, d.ID, model.DeskHotDesk)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestDeskModeGuardIgnoresEndedAssignments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	d := e.desk(t, model.DeskAssigned)
	end := at(9, 0)
	_, err := e.Assignments.Create(ctx, d.ID, 5, at(6, 0), &end)
	require.NoError(t, err)

	e.clock.Advance(2 * time.Hour)
	got, err := e.Catalog.ChangeDeskMode(ctx, d.ID, model.DeskHotDesk)
	require.NoError(t, err)
	assert.True(t, got.IsBookable())
}

func TestHardDeleteGuards(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.room(t, model.BookingExclusive, 1)
	b, err := e.Ledger.CreateBooking(ctx, r.ID, 1, at(9, 0), at(10, 0))
	require.NoError(t, err)

	assert.ErrorIs(t, e.Catalog.HardDelete(ctx, r.ID), ErrConflict)

	_, err = e.Ledger.CancelBooking(ctx, b.ID, admin)
	require.NoError(t, err)
	w, err := e.Waitlist.Join(ctx, r.ID, 2, at(11, 0), at(12, 0))
	require.NoError(t, err)
	assert.ErrorIs(t, e.Catalog.HardDelete(ctx, r.ID), ErrConflict)

	require.NoError(t, e.Waitlist.Leave(ctx, w.ID, admin))
	require.NoError(t, e.Catalog.HardDelete(ctx, r.ID))
	_, err = e.Catalog.Get(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssignableAndBookableListings(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	free := e.desk(t, model.DeskAssigned)
	taken := e.desk(t, model.DeskAssigned)
	hot := e.desk(t, model.DeskHotDesk)
	_, err := e.Assignments.Create(ctx, taken.ID, 1, at(8, 0), nil)
	require.NoError(t, err)

	desks, err := e.Catalog.AssignableDesks(ctx, nil)
	require.NoError(t, err)
	require.Len(t, desks, 1)
	assert.Equal(t, free.ID, desks[0].ID)

	bookable, err := e.Catalog.ListBookable(ctx, model.ResourceFilter{})
	require.NoError(t, err)
	require.Len(t, bookable, 1)
	assert.Equal(t, hot.ID, bookable[0].ID)
}
