package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/workspace-reservation/internal/model"
)

func TestAssignmentOverlap(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	d := e.desk(t, model.DeskAssigned)

	end := at(0, 0).Add(7 * 24 * time.Hour)
	first, err := e.Assignments.Create(ctx, d.ID, 1, at(8, 0), &end)
	require.NoError(t, err)

	_, err = e.Assignments.Create(ctx, d.ID, 2, at(12, 0), nil)
	assert.ErrorIs(t, err, ErrConflict)

	// starts exactly when the first ends
	open, err := e.Assignments.Create(ctx, d.ID, 2, end, nil)
	require.NoError(t, err)

	// open-ended assignments overlap everything after their start
	later := end.Add(365 * 24 * time.Hour)
	_, err = e.Assignments.Create(ctx, d.ID, 3, later, ptr(later.Add(time.Hour)))
	assert.ErrorIs(t, err, ErrConflict)

	// updating an assignment does not collide with itself
	_, err = e.Assignments.Update(ctx, first.ID, 4, at(9, 0), &end)
	require.NoError(t, err)
	_, err = e.Assignments.Update(ctx, first.ID, 4, at(9, 0), ptr(end.Add(time.Hour)))
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, e.Assignments.Delete(ctx, open.ID))
	assert.ErrorIs(t, e.Assignments.Delete(ctx, open.ID), ErrNotFound)

	assert.Equal(t, []model.EventType{
		model.EventAssignmentCreated,
		model.EventAssignmentCreated,
		model.EventAssignmentUpdated,
		model.EventAssignmentDeleted,
	}, e.events.types())
}

func TestAssignmentRequiresAssignedDesk(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	hot := e.desk(t, model.DeskHotDesk)
	_, err := e.Assignments.Create(ctx, hot.ID, 1, at(8, 0), nil)
	assert.ErrorIs(t, err, ErrConflict)

	r := e.room(t, model.BookingExclusive, 1)
	_, err = e.Assignments.Create(ctx, r.ID, 1, at(8, 0), nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.Assignments.Create(ctx, 9999, 1, at(8, 0), nil)
	assert.ErrorIs(t, err, ErrNotFound)

	d := e.desk(t, model.DeskAssigned)
	_, err = e.Assignments.Create(ctx, d.ID, 1, at(10, 0), ptr(at(9, 0)))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestAssignmentsByDepartment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	mode := model.DeskAssigned
	dept := uint64(7)
	d, err := e.Catalog.Create(ctx, ResourceInput{ResourceNumber: "D-7", Name: "Desk", Type: model.ResourceDesk, Capacity: 1, DeskMode: &mode, DepartmentID: &dept})
	require.NoError(t, err)
	other := e.desk(t, model.DeskAssigned)

	_, err = e.Assignments.Create(ctx, d.ID, 1, at(8, 0), nil)
	require.NoError(t, err)
	_, err = e.Assignments.Create(ctx, other.ID, 2, at(8, 0), nil)
	require.NoError(t, err)

	list, err := e.Assignments.ListByDepartment(ctx, dept)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, d.ID, list[0].DeskID)

	list, err = e.Assignments.ListByDepartment(ctx, 12345)
	require.NoError(t, err)
	assert.Empty(t, list)
}
