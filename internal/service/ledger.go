package service

import (
	"context"
	"time"

	"github.com/iliyamo/workspace-reservation/internal/model"
	"github.com/iliyamo/workspace-reservation/internal/repository"
)

// Ledger owns the per-resource timeline of bookings.  Occupancy is never
// cached: every decision rescans the CONFIRMED bookings that intersect the
// requested window while the resource lock is held.
type Ledger struct {
	*core
	waitlist *Waitlist
}

func (l *Ledger) checkRange(start, end time.Time) (model.Interval, error) {
	w := model.Interval{Start: utc(start), End: utc(end)}
	if !w.Valid() {
		return w, invalidRange("start must be before end")
	}
	if w.Start.Before(l.now().Add(-l.opts.PastGrace)) {
		return w, invalidRange("start is in the past")
	}
	return w, nil
}

// CreateBooking books resourceID for userID over [start, end).
func (l *Ledger) CreateBooking(ctx context.Context, resourceID, userID uint64, start, end time.Time) (*model.Booking, error) {
	entry := l.log.WithField("resource_id", resourceID).WithField("user_id", userID)
	w, err := l.checkRange(start, end)
	if err != nil {
		l.logOutcome(entry, "booking rejected", err)
		return nil, err
	}
	var out *model.Booking
	err = l.locked(ctx, resourceID, func(tx repository.Store, ev *events) error {
		res, err := tx.Resources().GetByID(ctx, resourceID)
		if err != nil {
			return fail("get resource", err)
		}
		b, err := l.createLocked(ctx, tx, res, userID, w, nil)
		if err != nil {
			return err
		}
		ev.add(bookingEvent(model.EventBookingConfirmed, b, b.CreatedAt))
		out = b
		return nil
	})
	if err != nil {
		l.logOutcome(entry, "booking rejected", err)
		return nil, err
	}
	entry.WithField("booking_id", out.ID).Info("booking confirmed")
	return out, nil
}

// createLocked checks policy and capacity and persists a CONFIRMED
// booking.  The caller holds the resource lock and passes its transaction.
func (l *Ledger) createLocked(ctx context.Context, tx repository.Store, res *model.Resource, userID uint64, w model.Interval, entryID *uint64) (*model.Booking, error) {
	if !res.IsBookable() {
		return nil, conflict("resource is not bookable")
	}
	if res.Type == model.ResourceDesk {
		assignments, err := tx.Assignments().List(ctx, model.AssignmentFilter{DeskID: &res.ID})
		if err != nil {
			return nil, fail("list assignments", err)
		}
		for i := range assignments {
			if assignments[i].Overlaps(w) {
				return nil, conflict("desk is assigned during the requested window")
			}
		}
	}
	existing, err := tx.Bookings().ListOverlapping(ctx, res.ID, w)
	if err != nil {
		return nil, fail("list bookings", err)
	}
	if model.MaxOverlap(w, windows(existing))+1 > res.ConcurrencyLimit() {
		return nil, conflict("resource is fully booked for the requested window")
	}
	b := &model.Booking{
		ResourceID:      res.ID,
		UserID:          userID,
		StartUTC:        w.Start,
		EndUTC:          w.End,
		Status:          model.BookingConfirmed,
		WaitlistEntryID: entryID,
		CreatedAt:       l.now(),
	}
	if err := tx.Bookings().Create(ctx, b); err != nil {
		return nil, fail("create booking", err)
	}
	return b, nil
}

func windows(bs []model.Booking) []model.Interval {
	out := make([]model.Interval, len(bs))
	for i := range bs {
		out[i] = bs[i].Window()
	}
	return out
}

// CancelBooking cancels a booking owned by p (or any booking when p is an
// administrator) and offers the freed window to the waitlist.
func (l *Ledger) CancelBooking(ctx context.Context, id uint64, p model.Principal) (*model.Booking, error) {
	entry := l.log.WithField("booking_id", id).WithField("user_id", p.UserID)
	b, err := l.store.Bookings().GetByID(ctx, id)
	if err != nil {
		return nil, fail("get booking", err)
	}
	var out *model.Booking
	err = l.locked(ctx, b.ResourceID, func(tx repository.Store, ev *events) error {
		cur, err := tx.Bookings().GetByID(ctx, id)
		if err != nil {
			return fail("get booking", err)
		}
		if !p.Owns(cur.UserID) {
			return ErrForbidden
		}
		if cur.Status == model.BookingCancelled {
			return ErrAlreadyCancelled
		}
		now := l.now()
		if err := tx.Bookings().Cancel(ctx, id, now); err != nil {
			return fail("cancel booking", err)
		}
		cur.Status = model.BookingCancelled
		cur.CancelledAt = &now
		ev.add(bookingEvent(model.EventBookingCancelled, cur, now))
		out = cur

		if !cur.EndUTC.After(now) {
			return nil
		}
		res, err := tx.Resources().GetByID(ctx, cur.ResourceID)
		if err != nil {
			return fail("get resource", err)
		}
		return l.waitlist.matchLocked(ctx, tx, res, cur.Window(), ev)
	})
	if err != nil {
		l.logOutcome(entry, "cancel rejected", err)
		return nil, err
	}
	entry.Info("booking cancelled")
	return out, nil
}

// Get returns a booking visible to p.
func (l *Ledger) Get(ctx context.Context, id uint64, p model.Principal) (*model.Booking, error) {
	b, err := l.store.Bookings().GetByID(ctx, id)
	if err != nil {
		return nil, fail("get booking", err)
	}
	if !p.Owns(b.UserID) {
		return nil, ErrForbidden
	}
	return b, nil
}

// List returns bookings matching f.
func (l *Ledger) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return nil, invalidRange("start must be before end")
	}
	bs, err := l.store.Bookings().List(ctx, f)
	if err != nil {
		return nil, fail("list bookings", err)
	}
	return bs, nil
}
