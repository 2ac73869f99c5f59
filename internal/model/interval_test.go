package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(h, m int) time.Time { return time.Date(2026, 10, 20, h, m, 0, 0, time.UTC) }

func iv(h1, m1, h2, m2 int) Interval { return Interval{Start: at(h1, m1), End: at(h2, m2)} }

func TestIntervalOverlapsHalfOpen(t *testing.T) {
	assert.True(t, iv(9, 0, 10, 0).Overlaps(iv(9, 30, 10, 30)))
	assert.False(t, iv(9, 0, 10, 0).Overlaps(iv(10, 0, 11, 0)), "touching windows do not overlap")
	assert.True(t, iv(9, 0, 12, 0).Contains(iv(9, 30, 10, 30)))
	assert.False(t, iv(9, 0, 10, 0).Contains(iv(9, 30, 10, 30)))
}

func TestMaxOverlap(t *testing.T) {
	set := []Interval{iv(9, 0, 10, 0), iv(9, 30, 11, 0), iv(10, 0, 12, 0), iv(13, 0, 14, 0)}
	assert.Equal(t, 2, MaxOverlap(iv(8, 0, 18, 0), set))
	assert.Equal(t, 1, MaxOverlap(iv(12, 0, 18, 0), set))
	assert.Equal(t, 0, MaxOverlap(iv(14, 0, 18, 0), set))
}

func TestFreeIntervals(t *testing.T) {
	day := iv(8, 0, 18, 0)
	set := []Interval{iv(9, 0, 10, 0), iv(10, 0, 11, 0), iv(13, 0, 14, 0)}

	got := FreeIntervals(day, set, 1)
	assert.Equal(t, []Interval{iv(8, 0, 9, 0), iv(11, 0, 13, 0), iv(14, 0, 18, 0)}, got)

	shared := []Interval{iv(9, 0, 12, 0), iv(10, 0, 11, 0)}
	assert.Equal(t, []Interval{iv(8, 0, 10, 0), iv(11, 0, 18, 0)}, FreeIntervals(day, shared, 2))
	assert.Equal(t, []Interval{day}, FreeIntervals(day, nil, 1))
}

func TestResourcePolicy(t *testing.T) {
	shared := BookingShared
	hot := DeskHotDesk
	assigned := DeskAssigned

	room := &Resource{Type: ResourceRoom, Capacity: 6, Active: true, BookingType: &shared}
	assert.True(t, room.IsBookable())
	assert.Equal(t, 6, room.ConcurrencyLimit())

	exclusive := BookingExclusive
	room.BookingType = &exclusive
	assert.Equal(t, 1, room.ConcurrencyLimit())

	desk := &Resource{Type: ResourceDesk, Capacity: 1, Active: true, DeskMode: &hot}
	assert.True(t, desk.IsBookable())
	desk.DeskMode = &assigned
	assert.False(t, desk.IsBookable())

	parking := &Resource{Type: ResourceParking, Capacity: 40, Active: false}
	assert.False(t, parking.IsBookable())
	assert.Equal(t, 40, parking.ConcurrencyLimit())
}

func TestDeskAssignmentOverlap(t *testing.T) {
	end := at(12, 0)
	closed := &DeskAssignment{StartUTC: at(9, 0), EndUTC: &end}
	open := &DeskAssignment{StartUTC: at(12, 0)}
	later := &DeskAssignment{StartUTC: at(11, 0)}

	assert.False(t, closed.OverlapsAssignment(open))
	assert.True(t, closed.OverlapsAssignment(later))
	assert.True(t, open.OverlapsAssignment(later), "open-ended assignments overlap everything after their start")
	assert.True(t, open.ActiveAt(at(20, 0)))
	assert.False(t, closed.ActiveAt(at(12, 0)))
}
