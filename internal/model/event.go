package model

import "time"

// EventType names a domain event.  Values double as broker routing keys.
type EventType string

const (
	EventBookingConfirmed   EventType = "booking.confirmed"
	EventBookingCancelled   EventType = "booking.cancelled"
	EventWaitlistJoined     EventType = "waitlist.joined"
	EventWaitlistOffered    EventType = "waitlist.offered"
	EventWaitlistAccepted   EventType = "waitlist.accepted"
	EventWaitlistDeclined   EventType = "waitlist.declined"
	EventWaitlistExpired    EventType = "waitlist.expired"
	EventWaitlistLeft       EventType = "waitlist.left"
	EventResourceModeChange EventType = "resource.mode_changed"
	EventAssignmentCreated  EventType = "assignment.created"
	EventAssignmentUpdated  EventType = "assignment.updated"
	EventAssignmentDeleted  EventType = "assignment.deleted"
)

// Event is emitted after a mutation commits.  UserID is the user the event
// concerns (booking owner, offer recipient, assignee).
type Event struct {
	Type       EventType  `json:"type"`
	ResourceID uint64     `json:"resourceId"`
	UserID     uint64     `json:"userId,omitempty"`
	BookingID  uint64     `json:"bookingId,omitempty"`
	EntryID    uint64     `json:"entryId,omitempty"`
	AssignID   uint64     `json:"assignmentId,omitempty"`
	StartUTC   *time.Time `json:"startUtc,omitempty"`
	EndUTC     *time.Time `json:"endUtc,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	Detail     string     `json:"detail,omitempty"`
	OccurredAt time.Time  `json:"occurredAt"`
}
