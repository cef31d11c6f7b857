package web

import (
	"embed"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"festcal/internal/layout"
	appLog "festcal/internal/log"
	"festcal/internal/schedule"
)

//go:embed templates/day.html
var templatesFS embed.FS

var dayTemplate = template.Must(template.ParseFS(templatesFS, "templates/day.html"))

// Pixels per minute of the rendered day grid.
const pxPerMinute = 2

type gridItem struct {
	schedule.PlacedScreening
	Favorite bool
	Top      float64
	Height   float64
}

type gridVenue struct {
	Venue string
	Items []gridItem
}

type gridHour struct {
	Label string
	Top   float64
}

type gridPage struct {
	Festival string
	Day      string
	Label    string
	HeightPx int
	Hours    []gridHour
	Venues   []gridVenue
}

// handleDayGrid renders the printable day grid captured by the capture
// command. Favorites are highlighted.
func (s *Server) handleDayGrid(w http.ResponseWriter, r *http.Request) {
	day := chi.URLParam(r, "day")
	if _, err := time.Parse("2006-01-02", day); err != nil {
		http.Error(w, "invalid day", http.StatusBadRequest)
		return
	}

	favs := make(map[string]bool)
	if entries, err := s.favorites.List(r.Context()); err != nil {
		appLog.Warn("day grid without favorites", "error", err.Error())
	} else {
		for _, e := range entries {
			favs[e.ID] = true
		}
	}

	page := buildGridPage(s.cfg.Festival.Name, day, s.dayLayout(day), favs)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dayTemplate.Execute(w, page); err != nil {
		appLog.Error("failed to render day grid", err, "day", day)
	}
}

// buildGridPage positions every screening vertically on a shared time axis
// spanning the day's earliest start to its latest end, rounded to whole
// hours. Horizontal placement comes from the overlap layout.
func buildGridPage(festival, day string, cols []schedule.VenueColumn, favs map[string]bool) gridPage {
	first, last := math.MaxInt, math.MinInt
	for _, c := range cols {
		for _, it := range c.Items {
			start, err1 := layout.ParseClock(it.StartTime)
			end, err2 := layout.ParseClock(it.EndTime)
			if err1 != nil || err2 != nil {
				continue
			}
			first = min(first, start)
			last = max(last, end, start)
		}
	}

	page := gridPage{Festival: festival, Day: day, Label: dayLabel(cols, day)}
	if first > last {
		page.HeightPx = 0
		return page
	}
	first = first / 60 * 60
	last = (last + 59) / 60 * 60
	if last == first {
		last = first + 60
	}
	span := float64(last - first)
	page.HeightPx = (last - first) * pxPerMinute

	for m := first; m <= last; m += 60 {
		page.Hours = append(page.Hours, gridHour{
			Label: fmt.Sprintf("%02dh", m/60),
			Top:   round2(float64(m-first) / span * 100),
		})
	}

	for _, c := range cols {
		v := gridVenue{Venue: c.Venue, Items: make([]gridItem, 0, len(c.Items))}
		for _, it := range c.Items {
			gi := gridItem{PlacedScreening: it, Favorite: favs[it.ID]}
			start, err1 := layout.ParseClock(it.StartTime)
			end, err2 := layout.ParseClock(it.EndTime)
			if err1 == nil {
				gi.Top = round2(float64(start-first) / span * 100)
				if err2 == nil && end > start {
					gi.Height = round2(float64(end-start) / span * 100)
				}
			}
			if gi.Height == 0 {
				// Degenerate entries still get a visible sliver.
				gi.Height = round2(15 / span * 100)
			}
			gi.Left = round2(it.Left * 100)
			gi.Width = round2(it.Width * 100)
			v.Items = append(v.Items, gi)
		}
		page.Venues = append(page.Venues, v)
	}
	return page
}

// dayLabel prefers the upstream display label of the day's first screening.
func dayLabel(cols []schedule.VenueColumn, day string) string {
	for _, c := range cols {
		for _, it := range c.Items {
			if it.Date != "" {
				return it.Date
			}
		}
	}
	return day
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
