package model

import "time"

// EntryStatus tracks a waitlist entry through offer matching.
//
//	WAITING -> OFFERED -> ACCEPTED | DECLINED | EXPIRED
//
// ACCEPTED, DECLINED and EXPIRED entries are no longer on the waitlist;
// they are kept only as history.
type EntryStatus string

const (
	EntryWaiting  EntryStatus = "WAITING"
	EntryOffered  EntryStatus = "OFFERED"
	EntryAccepted EntryStatus = "ACCEPTED"
	EntryDeclined EntryStatus = "DECLINED"
	EntryExpired  EntryStatus = "EXPIRED"
)

// Open reports whether the entry is still queued (waiting or holding an offer).
func (s EntryStatus) Open() bool { return s == EntryWaiting || s == EntryOffered }

// Offer is the time-boxed right of first refusal an entry holds on freed
// capacity.  Freed records the interval the offer was made for so the next
// entrant can be matched against it after a decline or expiry.
type Offer struct {
	Status    EntryStatus `json:"status"`
	OfferedAt time.Time   `json:"offeredAt"`
	ExpiresAt time.Time   `json:"expiresAt"`
	Freed     Interval    `json:"freed"`
	BookingID *uint64     `json:"bookingId,omitempty"`
}

// WaitlistEntry queues a user's request for a contended window.  Entries for
// the same resource are served FIFO by CreatedAt (ties broken by ID).
type WaitlistEntry struct {
	ID         uint64      `json:"id"`
	ResourceID uint64      `json:"resourceId"`
	UserID     uint64      `json:"userId"`
	StartUTC   time.Time   `json:"startUtc"`
	EndUTC     time.Time   `json:"endUtc"`
	Status     EntryStatus `json:"status"`
	CreatedAt  time.Time   `json:"createdAt"`
	ResolvedAt *time.Time  `json:"resolvedAt,omitempty"`
	Offer      *Offer      `json:"offer,omitempty"`
}

// Window returns the requested time window.
func (e *WaitlistEntry) Window() Interval { return Interval{Start: e.StartUTC, End: e.EndUTC} }

// OfferOutstanding reports whether the entry holds an offer that has not
// passed its deadline at t.
func (e *WaitlistEntry) OfferOutstanding(t time.Time) bool {
	return e.Status == EntryOffered && e.Offer != nil && t.Before(e.Offer.ExpiresAt)
}

// WaitlistFilter narrows waitlist listings.
type WaitlistFilter struct {
	ResourceID *uint64
	UserID     *uint64
	Statuses   []EntryStatus
	// OfferExpiredBy selects OFFERED entries whose deadline is at or before it.
	OfferExpiredBy *time.Time
}

// Matches reports whether e satisfies every set field of f.
func (f WaitlistFilter) Matches(e *WaitlistEntry) bool {
	if f.ResourceID != nil && e.ResourceID != *f.ResourceID {
		return false
	}
	if f.UserID != nil && e.UserID != *f.UserID {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if e.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.OfferExpiredBy != nil {
		if e.Status != EntryOffered || e.Offer == nil || e.Offer.ExpiresAt.After(*f.OfferExpiredBy) {
			return false
		}
	}
	return true
}
