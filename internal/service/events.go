package service

import (
	"context"
	"time"

	"github.com/iliyamo/workspace-reservation/internal/model"
)

// EventSink receives domain events after the mutation that produced them
// has committed and its lock is released.  Implementations must not block
// for long and report their own failures.
type EventSink interface {
	Publish(ctx context.Context, ev model.Event)
}

// MultiSink fans an event out to every sink.
type MultiSink []EventSink

func (m MultiSink) Publish(ctx context.Context, ev model.Event) {
	for _, s := range m {
		if s != nil {
			s.Publish(ctx, ev)
		}
	}
}

type nopSink struct{}

func (nopSink) Publish(context.Context, model.Event) {}

// events collects what a locked operation wants to announce.
type events []model.Event

func (e *events) add(ev model.Event) { *e = append(*e, ev) }

func bookingEvent(t model.EventType, b *model.Booking, at time.Time) model.Event {
	start, end := b.StartUTC, b.EndUTC
	ev := model.Event{
		Type: t, ResourceID: b.ResourceID, UserID: b.UserID, BookingID: b.ID,
		StartUTC: &start, EndUTC: &end, OccurredAt: at,
	}
	if b.WaitlistEntryID != nil {
		ev.EntryID = *b.WaitlistEntryID
	}
	return ev
}

func entryEvent(t model.EventType, e *model.WaitlistEntry, at time.Time) model.Event {
	start, end := e.StartUTC, e.EndUTC
	ev := model.Event{
		Type: t, ResourceID: e.ResourceID, UserID: e.UserID, EntryID: e.ID,
		StartUTC: &start, EndUTC: &end, OccurredAt: at,
	}
	if e.Offer != nil {
		exp := e.Offer.ExpiresAt
		ev.ExpiresAt = &exp
		if e.Offer.BookingID != nil {
			ev.BookingID = *e.Offer.BookingID
		}
	}
	return ev
}

func assignmentEvent(t model.EventType, a *model.DeskAssignment, at time.Time) model.Event {
	start := a.StartUTC
	ev := model.Event{
		Type: t, ResourceID: a.DeskID, UserID: a.UserID, AssignID: a.ID,
		StartUTC: &start, EndUTC: cloneTime(a.EndUTC), OccurredAt: at,
	}
	return ev
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
