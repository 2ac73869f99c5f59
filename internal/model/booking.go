package model

import "time"

// BookingStatus is the lifecycle state of a booking.  CANCELLED is terminal.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Booking records a user's reservation of a resource for a time window.
// Bookings are created CONFIRMED and only ever move to CANCELLED;
// corrections are a cancel followed by a new booking.
//
// Fields:
//
//	ID              – primary key identifier.
//	ResourceID      – booked resource.
//	UserID          – owner of the booking.
//	StartUTC        – inclusive start of the window.
//	EndUTC          – exclusive end of the window.
//	Status          – CONFIRMED or CANCELLED.
//	WaitlistEntryID – set when the booking came from an accepted offer.
//	CreatedAt       – creation timestamp.
//	CancelledAt     – set once cancelled.
type Booking struct {
	ID              uint64        `json:"id"`
	ResourceID      uint64        `json:"resourceId"`
	UserID          uint64        `json:"userId"`
	StartUTC        time.Time     `json:"startUtc"`
	EndUTC          time.Time     `json:"endUtc"`
	Status          BookingStatus `json:"status"`
	WaitlistEntryID *uint64       `json:"waitlistEntryId,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	CancelledAt     *time.Time    `json:"cancelledAt,omitempty"`
}

// Window returns the booking's time window.
func (b *Booking) Window() Interval { return Interval{Start: b.StartUTC, End: b.EndUTC} }

// BookingFilter narrows booking listings.  Nil fields do not filter; when
// both From and To are set only bookings intersecting [From, To) match.
type BookingFilter struct {
	ResourceID *uint64
	UserID     *uint64
	Status     *BookingStatus
	From       *time.Time
	To         *time.Time
}

// Matches reports whether b satisfies every set field of f.
func (f BookingFilter) Matches(b *Booking) bool {
	if f.ResourceID != nil && b.ResourceID != *f.ResourceID {
		return false
	}
	if f.UserID != nil && b.UserID != *f.UserID {
		return false
	}
	if f.Status != nil && b.Status != *f.Status {
		return false
	}
	if f.From != nil && !b.EndUTC.After(*f.From) {
		return false
	}
	if f.To != nil && !b.StartUTC.Before(*f.To) {
		return false
	}
	return true
}
