// Package icsexport renders favorite screenings as an iCalendar feed so they
// can be added to a personal calendar.
package icsexport

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"festcal/internal/layout"
	appLog "festcal/internal/log"
	"festcal/internal/model"
)

const productID = "-//festcal//Festival Programme//FR"

// Options configures an export.
type Options struct {
	// CalendarName is shown by calendar clients (X-WR-CALNAME).
	CalendarName string
	// Location is the festival timezone the "HH:MM" values belong to.
	Location *time.Location
	// Now stamps DTSTAMP. Zero means time.Now().
	Now time.Time
}

// Favorites serializes screenings into an iCalendar document. Screenings
// whose day or times do not parse are left out.
func Favorites(screenings []model.Screening, opts Options) string {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.CalendarName != "" {
		cal.SetXWRCalName(opts.CalendarName)
	}
	cal.SetXWRTimezone(loc.String())

	for _, s := range screenings {
		start, end, err := Bounds(s, loc)
		if err != nil {
			appLog.Warn("ics export: screening skipped", "id", s.ID, "reason", err.Error())
			continue
		}

		ev := cal.AddEvent(UID(s))
		ev.SetDtStampTime(now)
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetSummary(s.Title)
		ev.SetLocation(s.Venue)
		if desc := description(s); desc != "" {
			ev.SetDescription(desc)
		}
		if s.URL != "" {
			ev.SetURL(s.URL)
		}
	}

	return cal.Serialize()
}

// UID is stable across exports so clients update rather than duplicate.
func UID(s model.Screening) string {
	return fmt.Sprintf("screening-%s@festcal", s.ID)
}

// Bounds resolves a screening's wall-clock times on its day in loc.
func Bounds(s model.Screening, loc *time.Location) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", s.Day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid day %q: %w", s.Day, err)
	}
	startMin, err := layout.ParseClock(s.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endMin, err := layout.ParseClock(s.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if endMin <= startMin {
		return time.Time{}, time.Time{}, fmt.Errorf("end %s not after start %s", s.EndTime, s.StartTime)
	}

	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, startMin, 0, 0, loc)
	end := time.Date(y, m, d, 0, endMin, 0, 0, loc)
	return start, end, nil
}

func description(s model.Screening) string {
	switch {
	case s.Director != "" && s.Section != "":
		return s.Director + " / " + s.Section
	case s.Director != "":
		return s.Director
	default:
		return s.Section
	}
}
