package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/workspace-reservation/internal/model"
)

func TestWaitlistScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r1 := e.room(t, model.BookingExclusive, 1)

	a, err := e.Ledger.CreateBooking(ctx, r1.ID, alice.UserID, at(9, 0), at(10, 0))
	require.NoError(t, err)

	_, err = e.Ledger.CreateBooking(ctx, r1.ID, bob.UserID, at(9, 30), at(10, 30))
	require.ErrorIs(t, err, ErrConflict)

	w, err := e.Waitlist.Join(ctx, r1.ID, bob.UserID, at(9, 30), at(10, 30))
	require.NoError(t, err)
	assert.Equal(t, model.EntryWaiting, w.Status)

	_, err = e.Ledger.CancelBooking(ctx, a.ID, alice)
	require.NoError(t, err)

	offers, err := e.Waitlist.MyOffers(ctx, bob.UserID)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, w.ID, offers[0].ID)
	assert.Equal(t, at(8, 15), offers[0].Offer.ExpiresAt)

	e.clock.Advance(10 * time.Minute)
	b, err := e.Waitlist.AcceptOffer(ctx, w.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, at(9, 30), b.StartUTC)
	assert.Equal(t, at(10, 30), b.EndUTC)
	require.NotNil(t, b.WaitlistEntryID)
	assert.Equal(t, w.ID, *b.WaitlistEntryID)

	open, err := e.Waitlist.MyEntries(ctx, bob.UserID)
	require.NoError(t, err)
	assert.Empty(t, open)

	assert.Equal(t, []model.EventType{
		model.EventBookingConfirmed,
		model.EventWaitlistJoined,
		model.EventBookingCancelled,
		model.EventWaitlistOffered,
		model.EventWaitlistAccepted,
		model.EventBookingConfirmed,
	}, e.events.types())
}

func TestCancellationOffersOldestFittingEntryOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.room(t, model.BookingExclusive, 1)

	a, err := e.Ledger.CreateBooking(ctx, r.ID, alice.UserID, at(9, 0), at(10, 0))
	require.NoError(t, err)
	// blocks the afternoon so carol's window never fits
	_, err = e.Ledger.CreateBooking(ctx, r.ID, alice.UserID, at(13, 0), at(14, 0))
	require.NoError(t, err)

	wc, err := e.Waitlist.Join(ctx, r.ID, carol.UserID, at(9, 30), at(13, 30))
	require.NoError(t, err)
	e.clock.Advance(time.Second)
	wb, err := e.Waitlist.Join(ctx, r.ID, bob.UserID, at(9, 0), at(9, 45))
	require.NoError(t, err)
	e.clock.Advance(time.Second)
	wa, err := e.Waitlist.Join(ctx, r.ID, admin.UserID, at(9, 15), at(9, 50))
	require.NoError(t, err)

	_, err = e.Ledger.CancelBooking(ctx, a.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, e.events.count(model.EventWaitlistOffered))

	entries, err := e.Waitlist.List(ctx, model.WaitlistFilter{ResourceID: &r.ID})
	require.NoError(t, err)
	status := map[uint64]model.EntryStatus{}
	for _, x := range entries {
		status[x.ID] = x.Status
	}
	assert.Equal(t, model.EntryWaiting, status[wc.ID])
	assert.Equal(t, model.EntryOffered, status[wb.ID])
	assert.Equal(t, model.EntryWaiting, status[wa.ID])
}

func TestDeclineHandsOfferToNextEntrant(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.room(t, model.BookingExclusive, 1)
	a, err := e.Ledger.CreateBooking(ctx, r.ID, alice.UserID, at(9, 0), at(10, 0))
	require.NoError(t, err)

	wb, err := e.Waitlist.Join(ctx, r.ID, bob.UserID, at(9, 0), at(10, 0))
	require.NoError(t, err)
	e.clock.Advance(time.Second)
	wc, err := e.Waitlist.Join(ctx, r.ID, carol.UserID, at(9, 0), at(10, 0))
	require.NoError(t, err)

	_, err = e.Ledger.CancelBooking(ctx, a.ID, alice)
	require.NoError(t, err)

	// second entrant is not offered while the first offer is outstanding
	offers, err := e.Waitlist.MyOffers(ctx, carol.UserID)
	require.NoError(t, err)
	assert.Empty(t, offers)

	assert.ErrorIs(t, e.Waitlist.DeclineOffer(ctx, wb.ID, carol), ErrForbidden)
	require.NoError(t, e.Waitlist.DeclineOffer(ctx, wb.ID, bob))

	offers, err = e.Waitlist.MyOffers(ctx, carol.UserID)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, wc.ID, offers[0].ID)

	// a declined entry cannot be accepted
	_, err = e.Waitlist.AcceptOffer(ctx, wb.ID, bob)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAcceptExpiredOfferFailsAndReoffers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.room(t, model.BookingExclusive, 1)
	a, err := e.Ledger.CreateBooking(ctx, r.ID, alice.UserID, at(9, 0), at(10, 0))
	require.NoError(t, err)
	wb, err := e.Waitlist.Join(ctx, r.ID, bob.UserID, at(9, 0), at(10, 0))
	require.NoError(t, err)
	e.clock.Advance(time.Second)
	wc, err := e.Waitlist.Join(ctx, r.ID, carol.UserID, at(9, 0), at(10, 0))
	require.NoError(t, err)

	_, err = e.Ledger.CancelBooking(ctx, a.ID, alice)
	require.NoError(t, err)

	e.clock.Advance(15 * time.Minute)
	_, err = e.Waitlist.AcceptOffer(ctx, wb.ID, bob)
	assert.ErrorIs(t, err, ErrExpired)
	// still expired on retry
	_, err = e.Waitlist.AcceptOffer(ctx, wb.ID, bob)
	assert.ErrorIs(t, err, ErrExpired)

	offers, err := e.Waitlist.MyOffers(ctx, carol.UserID)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, wc.ID, offers[0].ID)

	_, err = e.Waitlist.AcceptOffer(ctx, wc.ID, bob)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = e.Waitlist.AcceptOffer(ctx, wc.ID, carol)
	assert.NoError(t, err)
}

func TestExpireStaleOffersSweep(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.room(t, model.BookingExclusive, 1)
	a, err := e.Ledger.CreateBooking(ctx, r.ID, alice.UserID, at(9, 0), at(10, 0))
	require.NoError(t, err)
	wb, err := e.Waitlist.Join(ctx, r.ID, bob.UserID, at(9, 0), at(10, 0))
	require.NoError(t, err)
	e.clock.Advance(time.Second)
	_, err = e.Waitlist.Join(ctx, r.ID, carol.UserID, at(9, 0), at(10, 0))
	require.NoError(t, err)
	_, err = e.Ledger.CancelBooking(ctx, a.ID, alice)
	require.NoError(t, err)

	n, err := e.Waitlist.ExpireStaleOffers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	e.clock.Advance(16 * time.Minute)
	n, err = e.Waitlist.ExpireStaleOffers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := e.Waitlist.Get(ctx, wb.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, model.EntryExpired, got.Status)
	require.NotNil(t, got.ResolvedAt)

	offers, err := e.Waitlist.MyOffers(ctx, carol.UserID)
	require.NoError(t, err)
	assert.Len(t, offers, 1)

	// the next entrant's offer expires on the following sweep
	e.clock.Advance(16 * time.Minute)
	n, err = e.Waitlist.ExpireStaleOffers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, e.events.count(model.EventWaitlistExpired))
}

func TestAcceptRacingSweepHasOneWinner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.room(t, model.BookingExclusive, 1)
	a, err := e.Ledger.CreateBooking(ctx, r.ID, alice.UserID, at(9, 0), at(10, 0))
	require.NoError(t, err)
	wb, err := e.Waitlist.Join(ctx, r.ID, bob.UserID, at(9, 0), at(10, 0))
	require.NoError(t, err)
	_, err = e.Ledger.CancelBooking(ctx, a.ID, alice)
	require.NoError(t, err)
	e.clock.Advance(15 * time.Minute)

	var (
		wg       sync.WaitGroup
		acceptEr error
		swept    int
	)
	wg.Add(2)
	go func() { defer wg.Done(); _, acceptEr = e.Waitlist.AcceptOffer(ctx, wb.ID, bob) }()
	go func() { defer wg.Done(); swept, _ = e.Waitlist.ExpireStaleOffers(ctx) }()
	wg.Wait()

	assert.ErrorIs(t, acceptEr, ErrExpired)
	assert.LessOrEqual(t, swept, 1)
	assert.Equal(t, 1, e.events.count(model.EventWaitlistExpired))
}

func TestAcceptWithdrawsOfferWhenSlotTaken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.room(t, model.BookingExclusive, 1)
	a, err := e.Ledger.CreateBooking(ctx, r.ID, alice.UserID, at(9, 0), at(10, 0))
	require.NoError(t, err)
	wb, err := e.Waitlist.Join(ctx, r.ID, bob.UserID, at(9, 0), at(10, 0))
	require.NoError(t, err)
	_, err = e.Ledger.CancelBooking(ctx, a.ID, alice)
	require.NoError(t, err)

	// a direct booking is not held back by the outstanding offer
	_, err = e.Ledger.CreateBooking(ctx, r.ID, carol.UserID, at(9, 0), at(10, 0))
	require.NoError(t, err)

	_, err = e.Waitlist.AcceptOffer(ctx, wb.ID, bob)
	assert.ErrorIs(t, err, ErrConflict)

	got, err := e.Waitlist.Get(ctx, wb.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, model.EntryWaiting, got.Status)
	assert.Nil(t, got.Offer)
}

func TestJoinRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.room(t, model.BookingExclusive, 1)

	// joining a free window is allowed
	_, err := e.Waitlist.Join(ctx, r.ID, bob.UserID, at(9, 0), at(10, 0))
	require.NoError(t, err)
	_, err = e.Waitlist.Join(ctx, r.ID, bob.UserID, at(9, 0), at(10, 0))
	assert.ErrorIs(t, err, ErrDuplicateEntry)
	_, err = e.Waitlist.Join(ctx, r.ID, carol.UserID, at(9, 0), at(10, 0))
	assert.NoError(t, err)
	_, err = e.Waitlist.Join(ctx, r.ID, bob.UserID, at(10, 0), at(9, 0))
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = e.Waitlist.Join(ctx, 4242, bob.UserID, at(9, 0), at(10, 0))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLeaveWhileOfferedRematches(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.room(t, model.BookingExclusive, 1)
	a, err := e.Ledger.CreateBooking(ctx, r.ID, alice.UserID, at(9, 0), at(10, 0))
	require.NoError(t, err)
	wb, err := e.Waitlist.Join(ctx, r.ID, bob.UserID, at(9, 0), at(10, 0))
	require.NoError(t, err)
	e.clock.Advance(time.Second)
	wc, err := e.Waitlist.Join(ctx, r.ID, carol.UserID, at(9, 0), at(10, 0))
	require.NoError(t, err)
	_, err = e.Ledger.CancelBooking(ctx, a.ID, alice)
	require.NoError(t, err)

	assert.ErrorIs(t, e.Waitlist.Leave(ctx, wb.ID, carol), ErrForbidden)
	require.NoError(t, e.Waitlist.Leave(ctx, wb.ID, bob))
	_, err = e.Waitlist.Get(ctx, wb.ID, bob)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := e.Waitlist.Get(ctx, wc.ID, carol)
	require.NoError(t, err)
	assert.Equal(t, model.EntryOffered, got.Status)
}
