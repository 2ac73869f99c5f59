package model

import (
	"sort"
	"time"
)

// Interval is a half-open UTC time window [Start, End).
type Interval struct {
	Start time.Time `json:"startUtc"`
	End   time.Time `json:"endUtc"`
}

// Valid reports whether the interval is non-empty.
func (i Interval) Valid() bool { return i.Start.Before(i.End) }

// Overlaps reports whether two half-open intervals intersect.  Touching
// intervals (one ends exactly when the other starts) do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Contains reports whether o lies fully inside i.
func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

// Duration returns End - Start.
func (i Interval) Duration() time.Duration { return i.End.Sub(i.Start) }

type edge struct {
	at    time.Time
	delta int
}

// clippedEdges turns the members of set that intersect window into start
// (+1) and end (-1) edges clipped to window.  Edges are ordered by time with
// ends first at equal instants, since touching half-open intervals do not
// overlap.
func clippedEdges(window Interval, set []Interval) []edge {
	edges := make([]edge, 0, len(set)*2)
	for _, s := range set {
		if !s.Overlaps(window) {
			continue
		}
		start, end := s.Start, s.End
		if start.Before(window.Start) {
			start = window.Start
		}
		if end.After(window.End) {
			end = window.End
		}
		edges = append(edges, edge{start, +1}, edge{end, -1})
	}
	sort.Slice(edges, func(i, j int) bool {
		if !edges[i].at.Equal(edges[j].at) {
			return edges[i].at.Before(edges[j].at)
		}
		return edges[i].delta < edges[j].delta
	})
	return edges
}

// MaxOverlap returns the highest number of intervals in set that are
// simultaneously active at some instant inside window.
func MaxOverlap(window Interval, set []Interval) int {
	cur, peak := 0, 0
	for _, e := range clippedEdges(window, set) {
		cur += e.delta
		if cur > peak {
			peak = cur
		}
	}
	return peak
}

// FreeIntervals returns the maximal sub-windows of window during which fewer
// than limit intervals of set are active, in chronological order.
func FreeIntervals(window Interval, set []Interval, limit int) []Interval {
	if !window.Valid() {
		return nil
	}
	if limit < 1 {
		limit = 1
	}
	var out []Interval
	cur := 0
	freeFrom := window.Start
	free := true
	for _, e := range clippedEdges(window, set) {
		cur += e.delta
		switch {
		case free && cur >= limit:
			if freeFrom.Before(e.at) {
				out = append(out, Interval{Start: freeFrom, End: e.at})
			}
			free = false
		case !free && cur < limit:
			freeFrom = e.at
			free = true
		}
	}
	if free && freeFrom.Before(window.End) {
		out = append(out, Interval{Start: freeFrom, End: window.End})
	}
	return out
}
