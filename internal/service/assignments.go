package service

import (
	"context"
	"time"

	"github.com/iliyamo/workspace-reservation/internal/model"
	"github.com/iliyamo/workspace-reservation/internal/repository"
)

// Assignments manages long-term desk assignments.  They are gated by desk
// mode only and never take part in booking overlap arithmetic.
type Assignments struct {
	*core
}

func assignmentWindow(start time.Time, end *time.Time) (time.Time, *time.Time, error) {
	s := utc(start)
	if end == nil {
		return s, nil, nil
	}
	e := utc(*end)
	if !s.Before(e) {
		return s, nil, invalidRange("start must be before end")
	}
	return s, &e, nil
}

// checkLocked verifies the desk accepts a by mode and overlap.  skipID
// excludes the assignment being updated.
func (s *Assignments) checkLocked(ctx context.Context, tx repository.Store, a *model.DeskAssignment, skipID uint64) error {
	desk, err := tx.Resources().GetByID(ctx, a.DeskID)
	if err != nil {
		return fail("get desk", err)
	}
	if desk.Type != model.ResourceDesk {
		return invalid("resource is not a desk")
	}
	if !desk.Active || !desk.IsDeskInMode(model.DeskAssigned) {
		return conflict("desk is not in ASSIGNED mode")
	}
	existing, err := tx.Assignments().List(ctx, model.AssignmentFilter{DeskID: &a.DeskID})
	if err != nil {
		return fail("list assignments", err)
	}
	for i := range existing {
		if existing[i].ID != skipID && existing[i].OverlapsAssignment(a) {
			return conflict("desk already assigned during the requested window")
		}
	}
	return nil
}

// Create assigns deskID to userID from start until end (nil = open-ended).
func (s *Assignments) Create(ctx context.Context, deskID, userID uint64, start time.Time, end *time.Time) (*model.DeskAssignment, error) {
	log := s.log.WithField("resource_id", deskID).WithField("user_id", userID)
	st, en, err := assignmentWindow(start, end)
	if err != nil {
		return nil, err
	}
	a := &model.DeskAssignment{DeskID: deskID, UserID: userID, StartUTC: st, EndUTC: en}
	err = s.locked(ctx, deskID, func(tx repository.Store, ev *events) error {
		if err := s.checkLocked(ctx, tx, a, 0); err != nil {
			return err
		}
		a.CreatedAt = s.now()
		if err := tx.Assignments().Create(ctx, a); err != nil {
			return fail("create assignment", err)
		}
		ev.add(assignmentEvent(model.EventAssignmentCreated, a, a.CreatedAt))
		return nil
	})
	if err != nil {
		s.logOutcome(log, "assignment rejected", err)
		return nil, err
	}
	log.WithField("assignment_id", a.ID).Info("desk assigned")
	return a, nil
}

// Update moves an assignment to another user or window with the same
// checks as Create.
func (s *Assignments) Update(ctx context.Context, id, userID uint64, start time.Time, end *time.Time) (*model.DeskAssignment, error) {
	st, en, err := assignmentWindow(start, end)
	if err != nil {
		return nil, err
	}
	cur, err := s.store.Assignments().GetByID(ctx, id)
	if err != nil {
		return nil, fail("get assignment", err)
	}
	var out *model.DeskAssignment
	err = s.locked(ctx, cur.DeskID, func(tx repository.Store, ev *events) error {
		a, err := tx.Assignments().GetByID(ctx, id)
		if err != nil {
			return fail("get assignment", err)
		}
		a.UserID, a.StartUTC, a.EndUTC = userID, st, en
		if err := s.checkLocked(ctx, tx, a, a.ID); err != nil {
			return err
		}
		if err := tx.Assignments().Update(ctx, a); err != nil {
			return fail("update assignment", err)
		}
		ev.add(assignmentEvent(model.EventAssignmentUpdated, a, s.now()))
		out = a
		return nil
	})
	if err != nil {
		s.logOutcome(s.log.WithField("assignment_id", id), "assignment update rejected", err)
		return nil, err
	}
	return out, nil
}

// Delete removes an assignment.
func (s *Assignments) Delete(ctx context.Context, id uint64) error {
	cur, err := s.store.Assignments().GetByID(ctx, id)
	if err != nil {
		return fail("get assignment", err)
	}
	return s.locked(ctx, cur.DeskID, func(tx repository.Store, ev *events) error {
		if err := tx.Assignments().Delete(ctx, id); err != nil {
			return fail("delete assignment", err)
		}
		ev.add(assignmentEvent(model.EventAssignmentDeleted, cur, s.now()))
		return nil
	})
}

// Get returns one assignment.
func (s *Assignments) Get(ctx context.Context, id uint64) (*model.DeskAssignment, error) {
	a, err := s.store.Assignments().GetByID(ctx, id)
	if err != nil {
		return nil, fail("get assignment", err)
	}
	return a, nil
}

// List returns assignments matching f.
func (s *Assignments) List(ctx context.Context, f model.AssignmentFilter) ([]model.DeskAssignment, error) {
	as, err := s.store.Assignments().List(ctx, f)
	if err != nil {
		return nil, fail("list assignments", err)
	}
	return as, nil
}

// ListByDepartment returns assignments of desks scoped to departmentID.
func (s *Assignments) ListByDepartment(ctx context.Context, departmentID uint64) ([]model.DeskAssignment, error) {
	typ := model.ResourceDesk
	desks, err := s.store.Resources().List(ctx, model.ResourceFilter{Type: &typ, DepartmentID: &departmentID})
	if err != nil {
		return nil, fail("list desks", err)
	}
	ids := make([]uint64, 0, len(desks))
	for _, d := range desks {
		ids = append(ids, d.ID)
	}
	return s.List(ctx, model.AssignmentFilter{DeskIDs: ids})
}
