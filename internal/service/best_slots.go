package service

import (
	"container/heap"
	"context"
	"iter"
	"time"

	"github.com/iliyamo/workspace-reservation/internal/model"
)

// BestSlots lists free windows of at least q.DurationMinutes on bookable
// resources matching q.Criteria during the UTC day of q.Date, earliest
// start first and resource ID on ties.  It reads without locking; results
// are advisory and CreateBooking revalidates them.
//
// Storage is read up front so errors surface here; the returned sequence
// merges the per-resource lists lazily.
func (l *Ledger) BestSlots(ctx context.Context, q model.SlotQuery) (iter.Seq[model.Slot], error) {
	if q.DurationMinutes <= 0 {
		return nil, invalid("durationMinutes must be positive")
	}
	if q.Date.IsZero() {
		return nil, invalid("date is required")
	}
	d := q.Date.UTC()
	day := model.Interval{Start: time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)}
	day.End = day.Start.Add(24 * time.Hour)
	if now := l.now(); now.After(day.Start) {
		day.Start = now
	}
	minLen := time.Duration(q.DurationMinutes) * time.Minute
	if !day.Valid() || day.Duration() < minLen {
		return func(func(model.Slot) bool) {}, nil
	}

	criteria := q.Criteria
	criteria.ActiveOnly = true
	resources, err := l.store.Resources().List(ctx, criteria)
	if err != nil {
		return nil, fail("list resources", err)
	}

	var lists [][]model.Slot
	for i := range resources {
		res := &resources[i]
		if !res.IsBookable() {
			continue
		}
		bookings, err := l.store.Bookings().ListOverlapping(ctx, res.ID, day)
		if err != nil {
			return nil, fail("list bookings", err)
		}
		busy := windows(bookings)
		limit := res.ConcurrencyLimit()
		if res.Type == model.ResourceDesk {
			assignments, err := l.store.Assignments().List(ctx, model.AssignmentFilter{DeskID: &res.ID})
			if err != nil {
				return nil, fail("list assignments", err)
			}
			for j := range assignments {
				a := &assignments[j]
				if !a.Overlaps(day) {
					continue
				}
				end := day.End
				if a.EndUTC != nil {
					end = *a.EndUTC
				}
				// an assignment blocks the desk whatever its booking limit
				for k := 0; k < limit; k++ {
					busy = append(busy, model.Interval{Start: a.StartUTC, End: end})
				}
			}
		}
		var slots []model.Slot
		for _, free := range model.FreeIntervals(day, busy, limit) {
			if free.Duration() >= minLen {
				slots = append(slots, model.Slot{ResourceID: res.ID, StartUTC: free.Start, EndUTC: free.End})
			}
		}
		if len(slots) > 0 {
			lists = append(lists, slots)
		}
	}
	return mergeSlots(lists), nil
}

// mergeSlots lazily k-way merges per-resource slot lists that are each
// ordered by start.
func mergeSlots(lists [][]model.Slot) iter.Seq[model.Slot] {
	return func(yield func(model.Slot) bool) {
		h := make(slotHeap, 0, len(lists))
		for _, l := range lists {
			h = append(h, l)
		}
		heap.Init(&h)
		for h.Len() > 0 {
			head := h[0]
			if !yield(head[0]) {
				return
			}
			if len(head) == 1 {
				heap.Pop(&h)
				continue
			}
			h[0] = head[1:]
			heap.Fix(&h, 0)
		}
	}
}

type slotHeap [][]model.Slot

func (h slotHeap) Len() int { return len(h) }
func (h slotHeap) Less(i, j int) bool {
	a, b := h[i][0], h[j][0]
	if !a.StartUTC.Equal(b.StartUTC) {
		return a.StartUTC.Before(b.StartUTC)
	}
	return a.ResourceID < b.ResourceID
}
func (h slotHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *slotHeap) Push(x any)   { *h = append(*h, x.([]model.Slot)) }
func (h *slotHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
