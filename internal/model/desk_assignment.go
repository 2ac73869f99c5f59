package model

import "time"

// DeskAssignment reserves an ASSIGNED-mode desk for one user long-term.  A
// nil EndUTC means the assignment is open-ended.
type DeskAssignment struct {
	ID        uint64     `json:"id"`
	DeskID    uint64     `json:"deskId"`
	UserID    uint64     `json:"userId"`
	StartUTC  time.Time  `json:"startUtc"`
	EndUTC    *time.Time `json:"endUtc,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ActiveAt reports whether the assignment has not ended at t.  Assignments
// that start in the future count as active, so a desk with a scheduled
// assignment cannot leave ASSIGNED mode.
func (a *DeskAssignment) ActiveAt(t time.Time) bool {
	return a.EndUTC == nil || a.EndUTC.After(t)
}

// Overlaps reports whether the assignment intersects w.  Open-ended
// assignments extend forever from their start.
func (a *DeskAssignment) Overlaps(w Interval) bool {
	if !a.StartUTC.Before(w.End) {
		return false
	}
	return a.EndUTC == nil || a.EndUTC.After(w.Start)
}

// OverlapsAssignment reports whether two assignments share any instant,
// treating nil ends as unbounded.
func (a *DeskAssignment) OverlapsAssignment(o *DeskAssignment) bool {
	aEndsBeforeO := a.EndUTC != nil && !a.EndUTC.After(o.StartUTC)
	oEndsBeforeA := o.EndUTC != nil && !o.EndUTC.After(a.StartUTC)
	return !aEndsBeforeO && !oEndsBeforeA
}

// AssignmentFilter narrows assignment listings.
type AssignmentFilter struct {
	DeskID  *uint64
	UserID  *uint64
	DeskIDs []uint64
}

// Matches reports whether a satisfies every set field of f.
func (f AssignmentFilter) Matches(a *DeskAssignment) bool {
	if f.DeskID != nil && a.DeskID != *f.DeskID {
		return false
	}
	if f.UserID != nil && a.UserID != *f.UserID {
		return false
	}
	if f.DeskIDs != nil {
		for _, id := range f.DeskIDs {
			if id == a.DeskID {
				return true
			}
		}
		return false
	}
	return true
}
