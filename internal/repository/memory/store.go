// Package memory is an in-process implementation of repository.Store used
// by tests and by DB_DRIVER=memory.  Records live in arenas addressed by ID
// with per-resource indexes for the hot queries.  All access is serialized
// by one mutex; WithinTx holds it for the whole callback and restores a
// snapshot when the callback fails.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/workspace-reservation/internal/model"
	"github.com/iliyamo/workspace-reservation/internal/repository"
)

type state struct {
	resources   arena[model.Resource]
	bookings    arena[model.Booking]
	assignments arena[model.DeskAssignment]
	entries     arena[model.WaitlistEntry]

	bookingsByResource index
	entriesByResource  index
}

func newState() state {
	return state{bookingsByResource: index{}, entriesByResource: index{}}
}

func (s *state) clone() state {
	return state{
		resources:          s.resources.clone(),
		bookings:           s.bookings.clone(),
		assignments:        s.assignments.clone(),
		entries:            s.entries.clone(),
		bookingsByResource: s.bookingsByResource.clone(),
		entriesByResource:  s.entriesByResource.clone(),
	}
}

type shared struct {
	mu sync.Mutex
	st state
}

// Store implements repository.Store in memory.  The zero value is not
// usable; call New.
type Store struct {
	sh   *shared
	inTx bool
}

// New returns an empty store.
func New() *Store { return &Store{sh: &shared{st: newState()}} }

var _ repository.Store = (*Store)(nil)

// do runs fn with the state locked unless the caller is already inside
// WithinTx, which holds the lock.
func (s *Store) do(fn func(st *state) error) error {
	if !s.inTx {
		s.sh.mu.Lock()
		defer s.sh.mu.Unlock()
	}
	return fn(&s.sh.st)
}

func (s *Store) Resources() repository.ResourceStore     { return resourceStore{s} }
func (s *Store) Bookings() repository.BookingStore       { return bookingStore{s} }
func (s *Store) Assignments() repository.AssignmentStore { return assignmentStore{s} }
func (s *Store) Waitlist() repository.WaitlistStore      { return waitlistStore{s} }

// WithinTx runs fn while holding the store lock.  The Store passed to fn
// must be used for every access inside fn; calling the outer Store from fn
// deadlocks.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.sh.mu.Lock()
	defer s.sh.mu.Unlock()
	snapshot := s.sh.st.clone()
	if err := fn(&Store{sh: s.sh, inTx: true}); err != nil {
		s.sh.st = snapshot
		return err
	}
	return nil
}

// --- deep copies so callers never alias stored records ---

func cloneID(v *uint64) *uint64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneResource(r model.Resource) model.Resource {
	r.BuildingID = cloneID(r.BuildingID)
	r.FloorID = cloneID(r.FloorID)
	r.DepartmentID = cloneID(r.DepartmentID)
	if r.BookingType != nil {
		b := *r.BookingType
		r.BookingType = &b
	}
	if r.DeskMode != nil {
		m := *r.DeskMode
		r.DeskMode = &m
	}
	return r
}

func cloneBooking(b model.Booking) model.Booking {
	b.WaitlistEntryID = cloneID(b.WaitlistEntryID)
	b.CancelledAt = cloneTime(b.CancelledAt)
	return b
}

func cloneAssignment(a model.DeskAssignment) model.DeskAssignment {
	a.EndUTC = cloneTime(a.EndUTC)
	return a
}

func cloneEntry(e model.WaitlistEntry) model.WaitlistEntry {
	e.ResolvedAt = cloneTime(e.ResolvedAt)
	if e.Offer != nil {
		o := *e.Offer
		o.BookingID = cloneID(o.BookingID)
		e.Offer = &o
	}
	return e
}

// --- resources ---

type resourceStore struct{ s *Store }

func (r resourceStore) Create(_ context.Context, res *model.Resource) error {
	return r.s.do(func(st *state) error {
		res.ID = st.resources.insert(model.Resource{})
		st.resources.set(res.ID, cloneResource(*res))
		return nil
	})
}

func (r resourceStore) GetByID(_ context.Context, id uint64) (*model.Resource, error) {
	var out *model.Resource
	err := r.s.do(func(st *state) error {
		v, ok := st.resources.get(id)
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneResource(v)
		out = &c
		return nil
	})
	return out, err
}

func (r resourceStore) List(_ context.Context, f model.ResourceFilter) ([]model.Resource, error) {
	out := []model.Resource{}
	err := r.s.do(func(st *state) error {
		st.resources.each(func(_ uint64, v model.Resource) bool {
			if f.Matches(&v) {
				out = append(out, cloneResource(v))
			}
			return true
		})
		return nil
	})
	return out, err
}

func (r resourceStore) Update(_ context.Context, res *model.Resource) error {
	return r.s.do(func(st *state) error {
		if !st.resources.set(res.ID, cloneResource(*res)) {
			return repository.ErrNotFound
		}
		return nil
	})
}

// Delete removes the resource and, like the SQL foreign keys, everything
// that references it.
func (r resourceStore) Delete(_ context.Context, id uint64) error {
	return r.s.do(func(st *state) error {
		if !st.resources.remove(id) {
			return repository.ErrNotFound
		}
		for _, bid := range st.bookingsByResource[id] {
			st.bookings.remove(bid)
		}
		delete(st.bookingsByResource, id)
		for _, eid := range st.entriesByResource[id] {
			st.entries.remove(eid)
		}
		delete(st.entriesByResource, id)
		var gone []uint64
		st.assignments.each(func(aid uint64, a model.DeskAssignment) bool {
			if a.DeskID == id {
				gone = append(gone, aid)
			}
			return true
		})
		for _, aid := range gone {
			st.assignments.remove(aid)
		}
		return nil
	})
}

// --- bookings ---

type bookingStore struct{ s *Store }

func (b bookingStore) Create(_ context.Context, bk *model.Booking) error {
	return b.s.do(func(st *state) error {
		bk.ID = st.bookings.insert(model.Booking{})
		st.bookings.set(bk.ID, cloneBooking(*bk))
		st.bookingsByResource.add(bk.ResourceID, bk.ID)
		return nil
	})
}

func (b bookingStore) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	var out *model.Booking
	err := b.s.do(func(st *state) error {
		v, ok := st.bookings.get(id)
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneBooking(v)
		out = &c
		return nil
	})
	return out, err
}

func (b bookingStore) Cancel(_ context.Context, id uint64, at time.Time) error {
	return b.s.do(func(st *state) error {
		v, ok := st.bookings.get(id)
		if !ok || v.Status != model.BookingConfirmed {
			return repository.ErrNotFound
		}
		at = at.UTC()
		v.Status = model.BookingCancelled
		v.CancelledAt = &at
		st.bookings.set(id, v)
		return nil
	})
}

func (b bookingStore) ListOverlapping(_ context.Context, resourceID uint64, w model.Interval) ([]model.Booking, error) {
	out := []model.Booking{}
	err := b.s.do(func(st *state) error {
		for _, id := range st.bookingsByResource[resourceID] {
			v, ok := st.bookings.get(id)
			if ok && v.Status == model.BookingConfirmed && v.Window().Overlaps(w) {
				out = append(out, cloneBooking(v))
			}
		}
		return nil
	})
	sortBookings(out)
	return out, err
}

func (b bookingStore) List(_ context.Context, f model.BookingFilter) ([]model.Booking, error) {
	out := []model.Booking{}
	err := b.s.do(func(st *state) error {
		collect := func(_ uint64, v model.Booking) bool {
			if f.Matches(&v) {
				out = append(out, cloneBooking(v))
			}
			return true
		}
		if f.ResourceID != nil {
			for _, id := range st.bookingsByResource[*f.ResourceID] {
				if v, ok := st.bookings.get(id); ok {
					collect(id, v)
				}
			}
			return nil
		}
		st.bookings.each(collect)
		return nil
	})
	sortBookings(out)
	return out, err
}

func sortBookings(bs []model.Booking) {
	sort.SliceStable(bs, func(i, j int) bool {
		if !bs[i].StartUTC.Equal(bs[j].StartUTC) {
			return bs[i].StartUTC.Before(bs[j].StartUTC)
		}
		return bs[i].ID < bs[j].ID
	})
}

// --- desk assignments ---

type assignmentStore struct{ s *Store }

func (a assignmentStore) Create(_ context.Context, as *model.DeskAssignment) error {
	return a.s.do(func(st *state) error {
		as.ID = st.assignments.insert(model.DeskAssignment{})
		st.assignments.set(as.ID, cloneAssignment(*as))
		return nil
	})
}

func (a assignmentStore) GetByID(_ context.Context, id uint64) (*model.DeskAssignment, error) {
	var out *model.DeskAssignment
	err := a.s.do(func(st *state) error {
		v, ok := st.assignments.get(id)
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneAssignment(v)
		out = &c
		return nil
	})
	return out, err
}

func (a assignmentStore) Update(_ context.Context, as *model.DeskAssignment) error {
	return a.s.do(func(st *state) error {
		if !st.assignments.set(as.ID, cloneAssignment(*as)) {
			return repository.ErrNotFound
		}
		return nil
	})
}

func (a assignmentStore) Delete(_ context.Context, id uint64) error {
	return a.s.do(func(st *state) error {
		if !st.assignments.remove(id) {
			return repository.ErrNotFound
		}
		return nil
	})
}

func (a assignmentStore) List(_ context.Context, f model.AssignmentFilter) ([]model.DeskAssignment, error) {
	out := []model.DeskAssignment{}
	err := a.s.do(func(st *state) error {
		st.assignments.each(func(_ uint64, v model.DeskAssignment) bool {
			if f.Matches(&v) {
				out = append(out, cloneAssignment(v))
			}
			return true
		})
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DeskID != out[j].DeskID {
			return out[i].DeskID < out[j].DeskID
		}
		if !out[i].StartUTC.Equal(out[j].StartUTC) {
			return out[i].StartUTC.Before(out[j].StartUTC)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

// --- waitlist ---

type waitlistStore struct{ s *Store }

func (w waitlistStore) Create(_ context.Context, e *model.WaitlistEntry) error {
	return w.s.do(func(st *state) error {
		e.ID = st.entries.insert(model.WaitlistEntry{})
		st.entries.set(e.ID, cloneEntry(*e))
		st.entriesByResource.add(e.ResourceID, e.ID)
		return nil
	})
}

func (w waitlistStore) GetByID(_ context.Context, id uint64) (*model.WaitlistEntry, error) {
	var out *model.WaitlistEntry
	err := w.s.do(func(st *state) error {
		v, ok := st.entries.get(id)
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneEntry(v)
		out = &c
		return nil
	})
	return out, err
}

func (w waitlistStore) Update(_ context.Context, e *model.WaitlistEntry) error {
	return w.s.do(func(st *state) error {
		if !st.entries.set(e.ID, cloneEntry(*e)) {
			return repository.ErrNotFound
		}
		return nil
	})
}

func (w waitlistStore) Delete(_ context.Context, id uint64) error {
	return w.s.do(func(st *state) error {
		v, ok := st.entries.get(id)
		if !ok {
			return repository.ErrNotFound
		}
		st.entries.remove(id)
		st.entriesByResource.drop(v.ResourceID, id)
		return nil
	})
}

func (w waitlistStore) List(_ context.Context, f model.WaitlistFilter) ([]model.WaitlistEntry, error) {
	out := []model.WaitlistEntry{}
	err := w.s.do(func(st *state) error {
		collect := func(_ uint64, v model.WaitlistEntry) bool {
			if f.Matches(&v) {
				out = append(out, cloneEntry(v))
			}
			return true
		}
		if f.ResourceID != nil {
			for _, id := range st.entriesByResource[*f.ResourceID] {
				if v, ok := st.entries.get(id); ok {
					collect(id, v)
				}
			}
			return nil
		}
		st.entries.each(collect)
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}
