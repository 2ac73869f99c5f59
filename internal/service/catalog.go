package service

import (
	"context"
	"strings"

	"github.com/iliyamo/workspace-reservation/internal/model"
	"github.com/iliyamo/workspace-reservation/internal/repository"
)

// Catalog manages resources and their booking policies.
type Catalog struct {
	*core
}

// ResourceInput carries the administrator-editable attributes of a resource.
// BookingType and DeskMode are honoured on create only.
type ResourceInput struct {
	ResourceNumber string
	Name           string
	Type           model.ResourceType
	Capacity       int
	BuildingID     *uint64
	FloorID        *uint64
	DepartmentID   *uint64
	BookingType    *model.BookingType
	DeskMode       *model.DeskMode
	Active         *bool
}

func (in *ResourceInput) validate() error {
	in.ResourceNumber = strings.TrimSpace(in.ResourceNumber)
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.ResourceNumber == "":
		return invalid("resourceNumber is required")
	case in.Name == "":
		return invalid("name is required")
	case !in.Type.Valid():
		return invalid("type must be ROOM, DESK or PARKING")
	case in.Capacity < 1:
		return invalid("capacity must be at least 1")
	case in.Type == model.ResourceParking && (in.FloorID != nil || in.DepartmentID != nil):
		return invalid("parking resources carry no floor or department")
	case in.BookingType != nil && !in.BookingType.Valid():
		return invalid("bookingType must be EXCLUSIVE or SHARED")
	case in.DeskMode != nil && !in.DeskMode.Valid():
		return invalid("deskMode must be ASSIGNED or HOT_DESK")
	}
	return nil
}

// Get returns one resource.
func (s *Catalog) Get(ctx context.Context, id uint64) (*model.Resource, error) {
	r, err := s.store.Resources().GetByID(ctx, id)
	if err != nil {
		return nil, fail("get resource", err)
	}
	return r, nil
}

// List returns resources matching f.
func (s *Catalog) List(ctx context.Context, f model.ResourceFilter) ([]model.Resource, error) {
	rs, err := s.store.Resources().List(ctx, f)
	if err != nil {
		return nil, fail("list resources", err)
	}
	return rs, nil
}

// ListBookable returns the resources end users may book right now.
func (s *Catalog) ListBookable(ctx context.Context, f model.ResourceFilter) ([]model.Resource, error) {
	f.ActiveOnly = true
	rs, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := rs[:0]
	for i := range rs {
		if rs[i].IsBookable() {
			out = append(out, rs[i])
		}
	}
	return out, nil
}

// AssignableDesks returns active ASSIGNED-mode desks with no active
// assignment, optionally limited to one department.
func (s *Catalog) AssignableDesks(ctx context.Context, departmentID *uint64) ([]model.Resource, error) {
	typ := model.ResourceDesk
	desks, err := s.List(ctx, model.ResourceFilter{Type: &typ, DepartmentID: departmentID, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(desks))
	for _, d := range desks {
		ids = append(ids, d.ID)
	}
	assignments, err := s.store.Assignments().List(ctx, model.AssignmentFilter{DeskIDs: ids})
	if err != nil {
		return nil, fail("list assignments", err)
	}
	now := s.now()
	taken := map[uint64]bool{}
	for i := range assignments {
		if assignments[i].ActiveAt(now) {
			taken[assignments[i].DeskID] = true
		}
	}
	out := []model.Resource{}
	for _, d := range desks {
		if d.IsDeskInMode(model.DeskAssigned) && !taken[d.ID] {
			out = append(out, d)
		}
	}
	return out, nil
}

// Create validates in, applies the per-type policy defaults and stores the
// resource.
func (s *Catalog) Create(ctx context.Context, in ResourceInput) (*model.Resource, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	r := &model.Resource{
		ResourceNumber: in.ResourceNumber,
		Name:           in.Name,
		Type:           in.Type,
		Capacity:       in.Capacity,
		Active:         in.Active == nil || *in.Active,
		BuildingID:     in.BuildingID,
		FloorID:        in.FloorID,
		DepartmentID:   in.DepartmentID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	switch in.Type {
	case model.ResourceRoom:
		bt := model.BookingExclusive
		if in.BookingType != nil {
			bt = *in.BookingType
		}
		r.BookingType = &bt
	case model.ResourceDesk:
		dm := model.DeskHotDesk
		if in.DeskMode != nil {
			dm = *in.DeskMode
		}
		r.DeskMode = &dm
		r.Capacity = 1
	}
	if err := s.store.Resources().Create(ctx, r); err != nil {
		return nil, fail("create resource", err)
	}
	s.log.WithField("resource_id", r.ID).WithField("type", r.Type).Info("resource created")
	return r, nil
}

// Update overwrites the descriptive attributes of a resource.  The type
// and policy fields are left alone; see ChangeDeskMode and
// ChangeRoomBookingType.
func (s *Catalog) Update(ctx context.Context, id uint64, in ResourceInput) (*model.Resource, error) {
	var out *model.Resource
	err := s.locked(ctx, id, func(tx repository.Store, _ *events) error {
		r, err := tx.Resources().GetByID(ctx, id)
		if err != nil {
			return fail("get resource", err)
		}
		in.Type = r.Type
		if err := in.validate(); err != nil {
			return err
		}
		r.ResourceNumber = in.ResourceNumber
		r.Name = in.Name
		r.Capacity = in.Capacity
		if r.Type == model.ResourceDesk {
			r.Capacity = 1
		}
		r.BuildingID, r.FloorID, r.DepartmentID = in.BuildingID, in.FloorID, in.DepartmentID
		if in.Active != nil {
			r.Active = *in.Active
		}
		r.UpdatedAt = s.now()
		if err := tx.Resources().Update(ctx, r); err != nil {
			return fail("update resource", err)
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SoftDelete marks the resource inactive.  Existing bookings stay; new
// bookings and offers are refused.
func (s *Catalog) SoftDelete(ctx context.Context, id uint64) error {
	return s.locked(ctx, id, func(tx repository.Store, _ *events) error {
		r, err := tx.Resources().GetByID(ctx, id)
		if err != nil {
			return fail("get resource", err)
		}
		r.Active = false
		r.UpdatedAt = s.now()
		if err := tx.Resources().Update(ctx, r); err != nil {
			return fail("deactivate resource", err)
		}
		return nil
	})
}

// HardDelete removes the resource and its history.  It is refused while
// future confirmed bookings, active assignments or open waitlist entries
// still reference it.
func (s *Catalog) HardDelete(ctx context.Context, id uint64) error {
	return s.locked(ctx, id, func(tx repository.Store, _ *events) error {
		if _, err := tx.Resources().GetByID(ctx, id); err != nil {
			return fail("get resource", err)
		}
		now := s.now()
		confirmed := model.BookingConfirmed
		bookings, err := tx.Bookings().List(ctx, model.BookingFilter{ResourceID: &id, Status: &confirmed, From: &now})
		if err != nil {
			return fail("list bookings", err)
		}
		if len(bookings) > 0 {
			return conflict("resource has future bookings")
		}
		assignments, err := tx.Assignments().List(ctx, model.AssignmentFilter{DeskID: &id})
		if err != nil {
			return fail("list assignments", err)
		}
		for i := range assignments {
			if assignments[i].ActiveAt(now) {
				return conflict("desk has an active assignment")
			}
		}
		entries, err := tx.Waitlist().List(ctx, model.WaitlistFilter{
			ResourceID: &id, Statuses: []model.EntryStatus{model.EntryWaiting, model.EntryOffered},
		})
		if err != nil {
			return fail("list waitlist", err)
		}
		if len(entries) > 0 {
			return conflict("resource has open waitlist entries")
		}
		if err := tx.Resources().Delete(ctx, id); err != nil {
			return fail("delete resource", err)
		}
		s.log.WithField("resource_id", id).Info("resource deleted")
		return nil
	})
}

// ChangeDeskMode switches a desk between ASSIGNED and HOT_DESK.  Leaving
// ASSIGNED is refused while any assignment on the desk is still active.
func (s *Catalog) ChangeDeskMode(ctx context.Context, id uint64, mode model.DeskMode) (*model.Resource, error) {
	if !mode.Valid() {
		return nil, invalid("deskMode must be ASSIGNED or HOT_DESK")
	}
	var out *model.Resource
	err := s.locked(ctx, id, func(tx repository.Store, ev *events) error {
		r, err := tx.Resources().GetByID(ctx, id)
		if err != nil {
			return fail("get resource", err)
		}
		if r.Type != model.ResourceDesk {
			return invalid("resource is not a desk")
		}
		now := s.now()
		if r.IsDeskInMode(model.DeskAssigned) && mode == model.DeskHotDesk {
			assignments, err := tx.Assignments().List(ctx, model.AssignmentFilter{DeskID: &id})
			if err != nil {
				return fail("list assignments", err)
			}
			for i := range assignments {
				if assignments[i].ActiveAt(now) {
					return conflict("desk has an active assignment")
				}
			}
		}
		r.DeskMode = &mode
		r.UpdatedAt = now
		if err := tx.Resources().Update(ctx, r); err != nil {
			return fail("update resource", err)
		}
		ev.add(model.Event{Type: model.EventResourceModeChange, ResourceID: id, Detail: "deskMode=" + string(mode), OccurredAt: now})
		out = r
		return nil
	})
	if err != nil {
		s.logOutcome(s.log.WithField("resource_id", id), "desk mode change rejected", err)
		return nil, err
	}
	return out, nil
}

// ChangeRoomBookingType switches a room between EXCLUSIVE and SHARED.  Only
// later overlap checks see the new policy; existing bookings stay.
func (s *Catalog) ChangeRoomBookingType(ctx context.Context, id uint64, bt model.BookingType) (*model.Resource, error) {
	if !bt.Valid() {
		return nil, invalid("bookingType must be EXCLUSIVE or SHARED")
	}
	var out *model.Resource
	err := s.locked(ctx, id, func(tx repository.Store, ev *events) error {
		r, err := tx.Resources().GetByID(ctx, id)
		if err != nil {
			return fail("get resource", err)
		}
		if r.Type != model.ResourceRoom {
			return invalid("resource is not a room")
		}
		now := s.now()
		r.BookingType = &bt
		r.UpdatedAt = now
		if err := tx.Resources().Update(ctx, r); err != nil {
			return fail("update resource", err)
		}
		ev.add(model.Event{Type: model.EventResourceModeChange, ResourceID: id, Detail: "bookingType=" + string(bt), OccurredAt: now})
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
