package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/workspace-reservation/internal/model"
	"github.com/iliyamo/workspace-reservation/internal/repository"
)

// Waitlist queues requests for contended windows and hands freed capacity
// to the oldest fitting entry as a time-boxed offer.
//
// The freed interval is the maximal span of spare capacity around the
// released window.  An entry matches when its window touches the released
// window and lies fully inside that span, i.e. it still has room at every
// instant once confirmed bookings and outstanding offers are counted.  Each
// release produces at most one offer; decline, expiry and withdrawal re-run
// matching on the window the offer was made for.
type Waitlist struct {
	*core
	ledger *Ledger
}

var openStatuses = []model.EntryStatus{model.EntryWaiting, model.EntryOffered}

// Join queues userID for resourceID over [start, end).  Joining does not
// look at current bookings; a user may hold one open entry per window.
func (w *Waitlist) Join(ctx context.Context, resourceID, userID uint64, start, end time.Time) (*model.WaitlistEntry, error) {
	log := w.log.WithField("resource_id", resourceID).WithField("user_id", userID)
	win, err := w.ledger.checkRange(start, end)
	if err != nil {
		return nil, err
	}
	var out *model.WaitlistEntry
	err = w.locked(ctx, resourceID, func(tx repository.Store, ev *events) error {
		res, err := tx.Resources().GetByID(ctx, resourceID)
		if err != nil {
			return fail("get resource", err)
		}
		if !res.IsBookable() {
			return conflict("resource is not bookable")
		}
		mine, err := tx.Waitlist().List(ctx, model.WaitlistFilter{ResourceID: &resourceID, UserID: &userID, Statuses: openStatuses})
		if err != nil {
			return fail("list waitlist", err)
		}
		for i := range mine {
			if mine[i].StartUTC.Equal(win.Start) && mine[i].EndUTC.Equal(win.End) {
				return ErrDuplicateEntry
			}
		}
		now := w.now()
		e := &model.WaitlistEntry{
			ResourceID: resourceID,
			UserID:     userID,
			StartUTC:   win.Start,
			EndUTC:     win.End,
			Status:     model.EntryWaiting,
			CreatedAt:  now,
		}
		if err := tx.Waitlist().Create(ctx, e); err != nil {
			return fail("create waitlist entry", err)
		}
		ev.add(entryEvent(model.EventWaitlistJoined, e, now))
		out = e
		return nil
	})
	if err != nil {
		w.logOutcome(log, "waitlist join rejected", err)
		return nil, err
	}
	log.WithField("entry_id", out.ID).Info("waitlist joined")
	return out, nil
}

// matchLocked offers freed to the oldest WAITING entry that fits.  The
// caller holds the resource lock.
func (w *Waitlist) matchLocked(ctx context.Context, tx repository.Store, res *model.Resource, freed model.Interval, ev *events) error {
	if !res.IsBookable() || !freed.Valid() {
		return nil
	}
	entries, err := tx.Waitlist().List(ctx, model.WaitlistFilter{ResourceID: &res.ID, Statuses: openStatuses})
	if err != nil {
		return fail("list waitlist", err)
	}
	now := w.now()
	earliest := now.Add(-w.opts.PastGrace)
	var offered []model.Interval
	for i := range entries {
		if entries[i].OfferOutstanding(now) {
			offered = append(offered, entries[i].Window())
		}
	}
	for i := range entries {
		e := &entries[i]
		win := e.Window()
		if e.Status != model.EntryWaiting || !freed.Overlaps(win) || win.Start.Before(earliest) {
			continue
		}
		confirmed, err := tx.Bookings().ListOverlapping(ctx, res.ID, win)
		if err != nil {
			return fail("list bookings", err)
		}
		held := append(windows(confirmed), offered...)
		if model.MaxOverlap(win, held)+1 > res.ConcurrencyLimit() {
			continue
		}
		e.Status = model.EntryOffered
		e.Offer = &model.Offer{
			Status:    model.EntryOffered,
			OfferedAt: now,
			ExpiresAt: now.Add(w.opts.OfferTTL),
			Freed:     freed,
		}
		if err := tx.Waitlist().Update(ctx, e); err != nil {
			return fail("offer waitlist entry", err)
		}
		ev.add(entryEvent(model.EventWaitlistOffered, e, now))
		w.log.WithField("resource_id", res.ID).WithField("entry_id", e.ID).WithField("user_id", e.UserID).
			Info("offer made")
		return nil
	}
	return nil
}

// resolveLocked closes an OFFERED entry with status and re-runs matching on
// the interval its offer held.
func (w *Waitlist) resolveLocked(ctx context.Context, tx repository.Store, e *model.WaitlistEntry, status model.EntryStatus, evType model.EventType, ev *events) error {
	now := w.now()
	freed := e.Offer.Freed
	e.Status = status
	e.Offer.Status = status
	e.ResolvedAt = &now
	if err := tx.Waitlist().Update(ctx, e); err != nil {
		return fail("update waitlist entry", err)
	}
	ev.add(entryEvent(evType, e, now))
	res, err := tx.Resources().GetByID(ctx, e.ResourceID)
	if err != nil {
		return fail("get resource", err)
	}
	return w.matchLocked(ctx, tx, res, freed, ev)
}

// ownedEntry loads an entry outside the lock to learn its resource and
// checks ownership.  Admins may act on any entry only when allowAdmin.
func (w *Waitlist) ownedEntry(ctx context.Context, id uint64, p model.Principal, allowAdmin bool) (*model.WaitlistEntry, error) {
	e, err := w.store.Waitlist().GetByID(ctx, id)
	if err != nil {
		return nil, fail("get waitlist entry", err)
	}
	if e.UserID != p.UserID && !(allowAdmin && p.Role.IsAdmin()) {
		return nil, ErrForbidden
	}
	return e, nil
}

// AcceptOffer converts the caller's outstanding offer into a booking.  A
// lapsed offer is expired on the spot, handed on and reported as
// ErrExpired.  If the window was taken by a direct booking meanwhile the
// offer is withdrawn and the entry goes back to WAITING.
func (w *Waitlist) AcceptOffer(ctx context.Context, id uint64, p model.Principal) (*model.Booking, error) {
	log := w.log.WithField("entry_id", id).WithField("user_id", p.UserID)
	e, err := w.ownedEntry(ctx, id, p, false)
	if err != nil {
		w.logOutcome(log, "accept rejected", err)
		return nil, err
	}
	var (
		booking *model.Booking
		outcome error
	)
	err = w.locked(ctx, e.ResourceID, func(tx repository.Store, ev *events) error {
		cur, err := tx.Waitlist().GetByID(ctx, id)
		if err != nil {
			return fail("get waitlist entry", err)
		}
		switch cur.Status {
		case model.EntryOffered:
		case model.EntryExpired:
			outcome = ErrExpired
			return nil
		default:
			return conflict("entry holds no open offer")
		}
		now := w.now()
		if !now.Before(cur.Offer.ExpiresAt) {
			outcome = ErrExpired
			return w.resolveLocked(ctx, tx, cur, model.EntryExpired, model.EventWaitlistExpired, ev)
		}
		res, err := tx.Resources().GetByID(ctx, cur.ResourceID)
		if err != nil {
			return fail("get resource", err)
		}
		b, err := w.ledger.createLocked(ctx, tx, res, cur.UserID, cur.Window(), &cur.ID)
		if errors.Is(err, ErrConflict) {
			outcome = err
			freed := cur.Offer.Freed
			cur.Status = model.EntryWaiting
			cur.Offer = nil
			if err := tx.Waitlist().Update(ctx, cur); err != nil {
				return fail("withdraw offer", err)
			}
			return w.matchLocked(ctx, tx, res, freed, ev)
		}
		if err != nil {
			return err
		}
		cur.Status = model.EntryAccepted
		cur.Offer.Status = model.EntryAccepted
		cur.Offer.BookingID = &b.ID
		cur.ResolvedAt = &now
		if err := tx.Waitlist().Update(ctx, cur); err != nil {
			return fail("accept offer", err)
		}
		ev.add(entryEvent(model.EventWaitlistAccepted, cur, now))
		ev.add(bookingEvent(model.EventBookingConfirmed, b, now))
		booking = b
		return nil
	})
	if err == nil {
		err = outcome
	}
	if err != nil {
		w.logOutcome(log, "accept rejected", err)
		return nil, err
	}
	log.WithField("booking_id", booking.ID).Info("offer accepted")
	return booking, nil
}

// DeclineOffer gives the caller's offer up and hands the window on.
func (w *Waitlist) DeclineOffer(ctx context.Context, id uint64, p model.Principal) error {
	log := w.log.WithField("entry_id", id).WithField("user_id", p.UserID)
	e, err := w.ownedEntry(ctx, id, p, false)
	if err != nil {
		return err
	}
	var outcome error
	err = w.locked(ctx, e.ResourceID, func(tx repository.Store, ev *events) error {
		cur, err := tx.Waitlist().GetByID(ctx, id)
		if err != nil {
			return fail("get waitlist entry", err)
		}
		switch cur.Status {
		case model.EntryOffered:
		case model.EntryExpired:
			outcome = ErrExpired
			return nil
		default:
			return conflict("entry holds no open offer")
		}
		if !w.now().Before(cur.Offer.ExpiresAt) {
			outcome = ErrExpired
			return w.resolveLocked(ctx, tx, cur, model.EntryExpired, model.EventWaitlistExpired, ev)
		}
		return w.resolveLocked(ctx, tx, cur, model.EntryDeclined, model.EventWaitlistDeclined, ev)
	})
	if err == nil {
		err = outcome
	}
	if err != nil {
		w.logOutcome(log, "decline rejected", err)
		return err
	}
	log.Info("offer declined")
	return nil
}

// Leave removes an open entry.  Leaving with an outstanding offer hands
// the offered window on like a decline.
func (w *Waitlist) Leave(ctx context.Context, id uint64, p model.Principal) error {
	log := w.log.WithField("entry_id", id).WithField("user_id", p.UserID)
	e, err := w.ownedEntry(ctx, id, p, true)
	if err != nil {
		return err
	}
	err = w.locked(ctx, e.ResourceID, func(tx repository.Store, ev *events) error {
		cur, err := tx.Waitlist().GetByID(ctx, id)
		if err != nil {
			return fail("get waitlist entry", err)
		}
		if !cur.Status.Open() {
			return conflict("entry is no longer on the waitlist")
		}
		if err := tx.Waitlist().Delete(ctx, id); err != nil {
			return fail("delete waitlist entry", err)
		}
		now := w.now()
		ev.add(entryEvent(model.EventWaitlistLeft, cur, now))
		if cur.Status != model.EntryOffered || cur.Offer == nil {
			return nil
		}
		res, err := tx.Resources().GetByID(ctx, cur.ResourceID)
		if err != nil {
			return fail("get resource", err)
		}
		return w.matchLocked(ctx, tx, res, cur.Offer.Freed, ev)
	})
	if err != nil {
		w.logOutcome(log, "leave rejected", err)
		return err
	}
	log.Info("waitlist left")
	return nil
}

// ExpireStaleOffers expires every OFFERED entry past its deadline and
// re-runs matching for each.  Resources whose lock is busy are skipped and
// picked up by the next sweep.  It returns the number of offers expired.
func (w *Waitlist) ExpireStaleOffers(ctx context.Context) (int, error) {
	now := w.now()
	due, err := w.store.Waitlist().List(ctx, model.WaitlistFilter{OfferExpiredBy: &now})
	if err != nil {
		return 0, fail("list stale offers", err)
	}
	var order []uint64
	byResource := map[uint64][]uint64{}
	for i := range due {
		rid := due[i].ResourceID
		if _, ok := byResource[rid]; !ok {
			order = append(order, rid)
		}
		byResource[rid] = append(byResource[rid], due[i].ID)
	}

	expired := 0
	var errs []error
	for _, rid := range order {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		n := 0
		err := w.locked(ctx, rid, func(tx repository.Store, ev *events) error {
			n = 0
			for _, id := range byResource[rid] {
				cur, err := tx.Waitlist().GetByID(ctx, id)
				if errors.Is(err, repository.ErrNotFound) {
					continue
				}
				if err != nil {
					return fail("get waitlist entry", err)
				}
				if cur.Status != model.EntryOffered || cur.Offer == nil || w.now().Before(cur.Offer.ExpiresAt) {
					continue
				}
				if err := w.resolveLocked(ctx, tx, cur, model.EntryExpired, model.EventWaitlistExpired, ev); err != nil {
					return err
				}
				n++
			}
			return nil
		})
		switch {
		case errors.Is(err, ErrBusy):
			w.log.WithField("resource_id", rid).Warn("offer sweep skipped busy resource")
		case err != nil:
			w.log.WithField("resource_id", rid).WithError(err).Error("offer sweep failed")
			errs = append(errs, err)
		default:
			expired += n
		}
	}
	if expired > 0 {
		w.log.WithField("expired", expired).Info("stale offers expired")
	}
	return expired, errors.Join(errs...)
}

// Get returns an entry visible to p.
func (w *Waitlist) Get(ctx context.Context, id uint64, p model.Principal) (*model.WaitlistEntry, error) {
	return w.ownedEntry(ctx, id, p, true)
}

// List returns entries matching f in FIFO order.
func (w *Waitlist) List(ctx context.Context, f model.WaitlistFilter) ([]model.WaitlistEntry, error) {
	es, err := w.store.Waitlist().List(ctx, f)
	if err != nil {
		return nil, fail("list waitlist", err)
	}
	return es, nil
}

// MyEntries returns the user's entries still on the waitlist.
func (w *Waitlist) MyEntries(ctx context.Context, userID uint64) ([]model.WaitlistEntry, error) {
	return w.List(ctx, model.WaitlistFilter{UserID: &userID, Statuses: openStatuses})
}

// MyOffers returns the user's offers that can still be accepted.
func (w *Waitlist) MyOffers(ctx context.Context, userID uint64) ([]model.WaitlistEntry, error) {
	es, err := w.List(ctx, model.WaitlistFilter{UserID: &userID, Statuses: []model.EntryStatus{model.EntryOffered}})
	if err != nil {
		return nil, err
	}
	now := w.now()
	out := es[:0]
	for i := range es {
		if es[i].OfferOutstanding(now) {
			out = append(out, es[i])
		}
	}
	return out, nil
}
