// Package layout assigns time-bounded events of one venue/day to side-by-side
// calendar columns so that no two overlapping events share a column.
//
// Events are split into overlap groups (connected components of the
// "overlaps" relation). Within a group, events are coloured first-fit in
// start order, which for interval graphs always uses exactly as many columns
// as the maximum number of simultaneously running events.
package layout

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Span is one event's wall-clock bounds in "HH:MM" form.
type Span struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Placement is the column assignment of one event. Column < TotalColumns,
// and TotalColumns is the same for every member of an overlap group.
type Placement struct {
	Column       int `json:"column"`
	TotalColumns int `json:"total_columns"`
}

// Left is the horizontal offset of the event as a fraction of the venue
// column width.
func (p Placement) Left() float64 {
	if p.TotalColumns <= 0 {
		return 0
	}
	return float64(p.Column) / float64(p.TotalColumns)
}

// Width is the event's share of the venue column width.
func (p Placement) Width() float64 {
	if p.TotalColumns <= 0 {
		return 1
	}
	return 1 / float64(p.TotalColumns)
}

// ParseClock converts "HH:MM" into minutes after midnight. "24:00" is
// accepted as an end-of-day bound.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	h, m, ok := strings.Cut(s, ":")
	if !ok || len(h) < 1 || len(h) > 2 || len(m) != 2 || !digits(h) || !digits(m) {
		return 0, fmt.Errorf("layout: invalid time %q", s)
	}
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	if hh > 24 || mm > 59 || (hh == 24 && mm != 0) {
		return 0, fmt.Errorf("layout: time out of range %q", s)
	}
	return hh*60 + mm, nil
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// interval is a Span resolved to minutes, remembering its input position.
type interval struct {
	index int
	start int
	end   int
	// valid is false for unparseable or zero/negative-length spans.
	valid bool
}

func toInterval(index int, s Span) interval {
	start, errStart := ParseClock(s.Start)
	end, errEnd := ParseClock(s.End)
	return interval{
		index: index,
		start: start,
		end:   end,
		valid: errStart == nil && errEnd == nil && start < end,
	}
}

// overlaps uses half-open bounds: an event ending at 10:00 and one starting
// at 10:00 do not overlap. Degenerate intervals overlap nothing.
func overlaps(a, b interval) bool {
	if !a.valid || !b.valid {
		return false
	}
	return a.start < b.end && b.start < a.end
}

// Overlaps reports whether two spans share at least one instant.
func Overlaps(a, b Span) bool {
	return overlaps(toInterval(0, a), toInterval(1, b))
}

// Compute returns one Placement per input span, at the same index. The input
// needs no particular order and the result is deterministic. Degenerate spans
// (start >= end, or times that do not parse) are placed alone as (0, 1).
func Compute(spans []Span) []Placement {
	out := make([]Placement, len(spans))

	sorted := make([]interval, 0, len(spans))
	for i, s := range spans {
		iv := toInterval(i, s)
		if !iv.valid {
			out[i] = Placement{Column: 0, TotalColumns: 1}
			continue
		}
		sorted = append(sorted, iv)
	}

	sort.Slice(sorted, func(a, b int) bool {
		if sorted[a].start != sorted[b].start {
			return sorted[a].start < sorted[b].start
		}
		return sorted[a].index < sorted[b].index
	})

	for _, g := range overlapGroups(sorted) {
		assignColumns(g, out)
	}
	return out
}

// overlapGroups splits start-ordered intervals into maximal overlap groups.
// An interval joins the current group iff it starts before the furthest end
// seen in that group: the member reaching that end started no later than it,
// so the two overlap.
func overlapGroups(sorted []interval) [][]interval {
	var groups [][]interval
	first, reach := 0, 0
	for i, iv := range sorted {
		if i == 0 || iv.start >= reach {
			if i > 0 {
				groups = append(groups, sorted[first:i])
			}
			first, reach = i, iv.end
			continue
		}
		if iv.end > reach {
			reach = iv.end
		}
	}
	if len(sorted) > 0 {
		groups = append(groups, sorted[first:])
	}
	return groups
}

// assignColumns places each member of a start-ordered group into the lowest
// column whose events it does not overlap, opening a new column when none
// fits, then stamps the group's final column count on every member.
func assignColumns(group []interval, out []Placement) {
	var columns [][]interval
	colOf := make([]int, len(group))

	for i, iv := range group {
		col := -1
		for c, placed := range columns {
			if fits(iv, placed) {
				col = c
				break
			}
		}
		if col < 0 {
			col = len(columns)
			columns = append(columns, nil)
		}
		columns[col] = append(columns[col], iv)
		colOf[i] = col
	}

	total := len(columns)
	for i, iv := range group {
		out[iv.index] = Placement{Column: colOf[i], TotalColumns: total}
	}
}

func fits(iv interval, placed []interval) bool {
	for _, p := range placed {
		if overlaps(iv, p) {
			return false
		}
	}
	return true
}
