package schedule

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"festcal/internal/layout"
	appLog "festcal/internal/log"
	"festcal/internal/model"
)

// defaultDuration is assumed when a record has neither an end time nor a
// duration.
const defaultDuration = 90

// upstreamProgramme is the upstream API payload.
type upstreamProgramme struct {
	Screenings []upstreamScreening `json:"screenings"`
}

type upstreamScreening struct {
	ID       upstreamID `json:"id"`
	Day      string     `json:"day"`
	Date     string     `json:"date"`
	Start    string     `json:"start"`
	End      string     `json:"end"`
	Duration int        `json:"duration"`
	Venue    string     `json:"venue"`
	Title    string     `json:"title"`
	Section  string     `json:"section"`
	Director string     `json:"director"`
	URL      string     `json:"url"`
}

// upstreamID accepts both numeric and string identifiers.
type upstreamID string

func (id *upstreamID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = upstreamID(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("screening id: %w", err)
		}
		*id = upstreamID(n.String())
	}
	return nil
}

// Parse decodes the upstream programme into display-ready screenings,
// ordered by day, start time and venue. Records without a valid day, start
// time or venue are skipped.
func Parse(body []byte) ([]model.Screening, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty programme body")
	}

	var prog upstreamProgramme
	if err := json.Unmarshal(body, &prog); err != nil {
		return nil, fmt.Errorf("decode programme: %w", err)
	}

	out := make([]model.Screening, 0, len(prog.Screenings))
	skipped := 0
	for _, u := range prog.Screenings {
		s, err := normalize(u)
		if err != nil {
			skipped++
			appLog.Debug("programme record skipped", "id", string(u.ID), "reason", err.Error())
			continue
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.Venue < b.Venue
	})

	if skipped > 0 {
		appLog.Warn("programme records skipped", "skipped", skipped, "kept", len(out))
	}
	return out, nil
}

func normalize(u upstreamScreening) (model.Screening, error) {
	day := strings.TrimSpace(u.Day)
	if _, err := time.Parse(dayLayout, day); err != nil {
		return model.Screening{}, fmt.Errorf("invalid day %q", u.Day)
	}
	venue := strings.TrimSpace(u.Venue)
	if venue == "" {
		return model.Screening{}, errors.New("missing venue")
	}
	start, err := layout.ParseClock(u.Start)
	if err != nil {
		return model.Screening{}, err
	}

	var end string
	if endMin, err := layout.ParseClock(u.End); err == nil {
		if endMin <= start {
			// Ends after midnight.
			endMin = 24 * 60
		}
		end = formatClock(endMin)
	} else {
		dur := u.Duration
		if dur <= 0 {
			dur = defaultDuration
		}
		end = formatClock(start + dur)
	}

	date := strings.TrimSpace(u.Date)
	if date == "" {
		date = day
	}

	// StartTime is always zero-padded. Legacy favorite keys are matched
	// against this form, so a key stored as "9:30" never matches.
	return model.Screening{
		ID:        string(u.ID),
		Day:       day,
		Date:      date,
		StartTime: formatClock(start),
		EndTime:   end,
		Venue:     venue,
		Title:     strings.TrimSpace(u.Title),
		Section:   strings.TrimSpace(u.Section),
		Director:  strings.TrimSpace(u.Director),
		URL:       strings.TrimSpace(u.URL),
	}, nil
}

// formatClock renders minutes after midnight as "HH:MM", capping at the end
// of the day.
func formatClock(min int) string {
	if min > 24*60 {
		min = 24 * 60
	}
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}
