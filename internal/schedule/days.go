package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"festcal/internal/model"
)

const dayLayout = "2006-01-02"

// FestivalDays enumerates count consecutive days starting at first
// ("2006-01-02") using a DAILY recurrence rule.
func FestivalDays(first string, count int) ([]string, error) {
	if count <= 0 {
		return nil, fmt.Errorf("festival days: count must be positive, got %d", count)
	}
	start, err := time.Parse(dayLayout, first)
	if err != nil {
		return nil, fmt.Errorf("festival days: invalid first day %q: %w", first, err)
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: start,
		Count:   count,
	})
	if err != nil {
		return nil, fmt.Errorf("festival days: %w", err)
	}

	occ := r.All()
	days := make([]string, 0, len(occ))
	for _, t := range occ {
		days = append(days, t.Format(dayLayout))
	}
	return days, nil
}

// DaysOf returns the distinct days present in screenings, in order.
func DaysOf(screenings []model.Screening) []string {
	seen := make(map[string]bool)
	days := make([]string, 0)
	for _, s := range screenings {
		if seen[s.Day] {
			continue
		}
		seen[s.Day] = true
		days = append(days, s.Day)
	}
	sort.Strings(days)
	return days
}
