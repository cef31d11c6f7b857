package schedule

import (
	"sort"
	"time"

	"festcal/internal/layout"
	"festcal/internal/model"
)

// Snapshot is an immutable view of the programme at one point in time. A nil
// *Snapshot means nothing has been loaded yet; its methods return empty
// results.
type Snapshot struct {
	Screenings []model.Screening
	FetchedAt  time.Time
	FromCache  bool
}

// All returns every screening, or nil for a nil snapshot.
func (s *Snapshot) All() []model.Screening {
	if s == nil {
		return nil
	}
	return s.Screenings
}

func (s *Snapshot) ByDay(day string) []model.Screening {
	out := make([]model.Screening, 0)
	for _, sc := range s.All() {
		if sc.Day == day {
			out = append(out, sc)
		}
	}
	return out
}

// Venues returns the venues with at least one screening on day, sorted.
func (s *Snapshot) Venues(day string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, sc := range s.ByDay(day) {
		if !seen[sc.Venue] {
			seen[sc.Venue] = true
			out = append(out, sc.Venue)
		}
	}
	sort.Strings(out)
	return out
}

func (s *Snapshot) ByVenue(day, venue string) []model.Screening {
	out := make([]model.Screening, 0)
	for _, sc := range s.ByDay(day) {
		if sc.Venue == venue {
			out = append(out, sc)
		}
	}
	return out
}

// Find looks a screening up by its upstream ID.
func (s *Snapshot) Find(id string) (model.Screening, bool) {
	if id == "" {
		return model.Screening{}, false
	}
	for _, sc := range s.All() {
		if sc.ID == id {
			return sc, true
		}
	}
	return model.Screening{}, false
}

// PlacedScreening is a screening with its column within its venue.
type PlacedScreening struct {
	model.Screening
	Column       int     `json:"column"`
	TotalColumns int     `json:"total_columns"`
	Left         float64 `json:"left"`
	Width        float64 `json:"width"`
}

// VenueColumn is one venue's laid-out screenings for a day.
type VenueColumn struct {
	Venue string            `json:"venue"`
	Items []PlacedScreening `json:"items"`
}

// DayLayout lays out every venue of day independently, ordered by venue.
func DayLayout(s *Snapshot, day string) []VenueColumn {
	venues := s.Venues(day)
	out := make([]VenueColumn, 0, len(venues))
	for _, v := range venues {
		out = append(out, VenueLayout(s.ByVenue(day, v), v))
	}
	return out
}

// VenueLayout lays out the screenings of one venue on one day.
func VenueLayout(screenings []model.Screening, venue string) VenueColumn {
	spans := make([]layout.Span, len(screenings))
	for i, sc := range screenings {
		spans[i] = layout.Span{Start: sc.StartTime, End: sc.EndTime}
	}
	placements := layout.Compute(spans)

	items := make([]PlacedScreening, len(screenings))
	for i, sc := range screenings {
		p := placements[i]
		items[i] = PlacedScreening{
			Screening:    sc,
			Column:       p.Column,
			TotalColumns: p.TotalColumns,
			Left:         p.Left(),
			Width:        p.Width(),
		}
	}
	return VenueColumn{Venue: venue, Items: items}
}
