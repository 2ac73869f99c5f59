package model

import "time"

// ResourceType enumerates the kinds of physical resources the catalog holds.
type ResourceType string

const (
	ResourceRoom    ResourceType = "ROOM"
	ResourceDesk    ResourceType = "DESK"
	ResourceParking ResourceType = "PARKING"
)

// Valid reports whether t is one of the known resource types.
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceRoom, ResourceDesk, ResourceParking:
		return true
	}
	return false
}

// BookingType is the overlap policy of a ROOM.
type BookingType string

const (
	BookingExclusive BookingType = "EXCLUSIVE"
	BookingShared    BookingType = "SHARED"
)

// Valid reports whether b is a known booking type.
func (b BookingType) Valid() bool { return b == BookingExclusive || b == BookingShared }

// DeskMode decides whether a DESK is assigned long-term or booked ad hoc.
type DeskMode string

const (
	DeskAssigned DeskMode = "ASSIGNED"
	DeskHotDesk  DeskMode = "HOT_DESK"
)

// Valid reports whether m is a known desk mode.
func (m DeskMode) Valid() bool { return m == DeskAssigned || m == DeskHotDesk }

// Resource is a bookable or assignable physical resource as stored in the
// `resources` table.  Bookings, desk assignments and waitlist entries
// reference resources by ID but never own them.
//
// Fields:
//
//	ID             – primary key identifier.
//	ResourceNumber – human facing code (e.g. "D-4.12").
//	Name           – display name.
//	Type           – ROOM, DESK or PARKING.
//	Capacity       – number of people/vehicles; at least 1.
//	Active         – false once soft-deleted.
//	BuildingID     – building scope (nullable).
//	FloorID        – floor scope (always nil for PARKING).
//	DepartmentID   – department scope (always nil for PARKING).
//	BookingType    – overlap policy, set for ROOM only.
//	DeskMode       – assignment mode, set for DESK only.
type Resource struct {
	ID             uint64       `json:"id"`
	ResourceNumber string       `json:"resourceNumber"`
	Name           string       `json:"name"`
	Type           ResourceType `json:"type"`
	Capacity       int          `json:"capacity"`
	Active         bool         `json:"active"`
	BuildingID     *uint64      `json:"buildingId,omitempty"`
	FloorID        *uint64      `json:"floorId,omitempty"`
	DepartmentID   *uint64      `json:"departmentId,omitempty"`
	BookingType    *BookingType `json:"bookingType,omitempty"`
	DeskMode       *DeskMode    `json:"deskMode,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// IsBookable reports whether end users may book the resource directly.
// Inactive resources and desks in ASSIGNED mode are not bookable.
func (r *Resource) IsBookable() bool {
	if r == nil || !r.Active {
		return false
	}
	switch r.Type {
	case ResourceRoom, ResourceParking:
		return true
	case ResourceDesk:
		return r.DeskMode != nil && *r.DeskMode == DeskHotDesk
	}
	return false
}

// ConcurrencyLimit is the number of CONFIRMED bookings that may overlap at
// any instant.  Exclusive rooms and desks allow one, shared rooms and
// parking allow Capacity.
func (r *Resource) ConcurrencyLimit() int {
	switch r.Type {
	case ResourceRoom:
		if r.BookingType != nil && *r.BookingType == BookingShared {
			return max(r.Capacity, 1)
		}
		return 1
	case ResourceParking:
		return max(r.Capacity, 1)
	}
	return 1
}

// IsDeskInMode reports whether r is a desk currently in mode m.
func (r *Resource) IsDeskInMode(m DeskMode) bool {
	return r.Type == ResourceDesk && r.DeskMode != nil && *r.DeskMode == m
}

// ResourceFilter narrows resource listings.  Nil fields do not filter; a
// non-nil empty IDs matches nothing.
type ResourceFilter struct {
	Type         *ResourceType
	BuildingID   *uint64
	FloorID      *uint64
	DepartmentID *uint64
	ActiveOnly   bool
	MinCapacity  int
	IDs          []uint64
}

// Matches reports whether r satisfies every set field of f.
func (f ResourceFilter) Matches(r *Resource) bool {
	if f.Type != nil && r.Type != *f.Type {
		return false
	}
	if f.BuildingID != nil && (r.BuildingID == nil || *r.BuildingID != *f.BuildingID) {
		return false
	}
	if f.FloorID != nil && (r.FloorID == nil || *r.FloorID != *f.FloorID) {
		return false
	}
	if f.DepartmentID != nil && (r.DepartmentID == nil || *r.DepartmentID != *f.DepartmentID) {
		return false
	}
	if f.ActiveOnly && !r.Active {
		return false
	}
	if f.MinCapacity > 0 && r.Capacity < f.MinCapacity {
		return false
	}
	if f.IDs != nil {
		found := false
		for _, id := range f.IDs {
			if id == r.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
