package model

import "time"

// Slot is a best-slots candidate: a free window on one resource.  It is
// advisory only and must be revalidated by booking.
type Slot struct {
	ResourceID uint64    `json:"resourceId"`
	StartUTC   time.Time `json:"startUtc"`
	EndUTC     time.Time `json:"endUtc"`
}

// SlotQuery describes a best-slots search.
type SlotQuery struct {
	Date            time.Time
	DurationMinutes int
	Criteria        ResourceFilter
}
